package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

const topItemsLimit = 10

// Generator renders the order history report: three charts plus an HTML
// summary page, written into OutputDir.
type Generator struct {
	OutputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{OutputDir: outputDir}
}

// Generate renders all report artifacts from the history rows. Charts render
// concurrently; the first failure aborts the rest.
func (g *Generator) Generate(rows []history.Row) error {
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if len(rows) == 0 {
		logger.Warn().Msg("No order history available, skipping report generation")
		return nil
	}

	summary := history.Summarize(rows)

	var eg errgroup.Group
	eg.Go(func() error { return g.renderSuccessRate(summary) })
	eg.Go(func() error { return g.renderTopItems(rows) })
	eg.Go(func() error { return g.renderQuantityVsStock(rows) })
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := g.renderHTML(summary, rows); err != nil {
		return err
	}

	logger.Info().Str("dir", g.OutputDir).Msg("Report generated")
	return nil
}

func (g *Generator) renderSuccessRate(s history.Summary) error {
	p := plot.New()
	p.Title.Text = "Order Dispatch Outcomes"
	p.Y.Label.Text = "Orders"
	p.Y.Min = 0

	failed := s.TotalOrders - s.SuccessfulOrders
	bars, err := plotter.NewBarChart(plotter.Values{
		float64(s.SuccessfulOrders), float64(failed),
	}, vg.Points(40))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX("successful", "failed")

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(g.OutputDir, "order_success_rate.png"))
}

func (g *Generator) renderTopItems(rows []history.Row) error {
	totals := make(map[string]int)
	for _, r := range rows {
		totals[r.ItemName] += r.Quantity
	}

	type itemTotal struct {
		name string
		qty  int
	}
	ranked := make([]itemTotal, 0, len(totals))
	for name, qty := range totals {
		ranked = append(ranked, itemTotal{name, qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].qty != ranked[j].qty {
			return ranked[i].qty > ranked[j].qty
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > topItemsLimit {
		ranked = ranked[:topItemsLimit]
	}

	values := make(plotter.Values, len(ranked))
	names := make([]string, len(ranked))
	for i, it := range ranked {
		values[i] = float64(it.qty)
		names[i] = it.name
	}

	p := plot.New()
	p.Title.Text = "Top Ordered Items"
	p.Y.Label.Text = "Total quantity"
	p.Y.Min = 0
	p.X.Tick.Label.Rotation = 0.5

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(8*vg.Inch, 4*vg.Inch, filepath.Join(g.OutputDir, "top_ordered_items.png"))
}

func (g *Generator) renderQuantityVsStock(rows []history.Row) error {
	pts := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		pts = append(pts, plotter.XY{X: r.CurrentStock, Y: float64(r.Quantity)})
	}

	p := plot.New()
	p.Title.Text = "Order Quantity vs Stock at Dispatch"
	p.X.Label.Text = "Stock left"
	p.Y.Label.Text = "Quantity ordered"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Radius = vg.Points(2.5)
	p.Add(scatter)

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(g.OutputDir, "quantity_vs_stock.png"))
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Order History Report</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 2rem; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
img { max-width: 100%; margin-bottom: 2rem; display: block; }
</style>
</head>
<body>
<h1>Order History Report</h1>
<p>Generated {{.GeneratedAt}}</p>
<table>
<tr><th>Total orders</th><td>{{.Summary.TotalOrders}}</td></tr>
<tr><th>Successful orders</th><td>{{.Summary.SuccessfulOrders}}</td></tr>
<tr><th>Success rate</th><td>{{printf "%.1f" .Summary.SuccessRate}}%</td></tr>
<tr><th>Items ordered</th><td>{{.Summary.TotalItems}}</td></tr>
<tr><th>Unique items</th><td>{{.Summary.UniqueItems}}</td></tr>
<tr><th>Total quantity</th><td>{{.Summary.TotalQuantity}}</td></tr>
<tr><th>Avg quantity per item</th><td>{{printf "%.1f" .Summary.AvgQuantity}}</td></tr>
<tr><th>Date range</th><td>{{.Summary.DateRangeDays}} day(s)</td></tr>
</table>
<img src="order_success_rate.png" alt="Order dispatch outcomes">
<img src="top_ordered_items.png" alt="Top ordered items">
<img src="quantity_vs_stock.png" alt="Quantity vs stock">
</body>
</html>
`))

func (g *Generator) renderHTML(summary history.Summary, rows []history.Row) error {
	f, err := os.Create(filepath.Join(g.OutputDir, "order_report.html"))
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		GeneratedAt string
		Summary     history.Summary
		Rows        []history.Row
	}{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Summary:     summary,
		Rows:        rows,
	}
	return reportTemplate.Execute(f, data)
}
