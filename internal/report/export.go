package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guarzo/autopricing/internal/model"
)

const (
	StatusOriginal = "ORIGINAL"
	StatusDiscount = "DISCOUNT"

	// exportTimeLayout is hour precision without zone, as the shop import
	// expects.
	exportTimeLayout = "2006-01-02T15:00:00"

	// minPriceRatio rejects recommendations below 10% of the base price.
	minPriceRatio = 0.1
)

var (
	exportHeader = []string{"style", "price", "status", "from_date", "to_date", "country_code", "currency"}
	auditHeader  = []string{
		"run_id", "style", "country_code", "category", "group_logic", "strategy", "change",
		"price", "base_price", "recom_price", "min_discount", "max_discount",
		"last_changed_days_ago", "master_switch", "path",
	}

	priceEnding = decimal.RequireFromString("0.95")
	exportUntil = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ExportRow is one line of the production export.
type ExportRow struct {
	Style    string
	Price    decimal.Decimal
	Status   string
	From     time.Time
	To       time.Time
	Country  string
	Currency string
}

// Exporter turns recommendations into export rows.
type Exporter struct {
	// Prefix is prepended to country codes, "shop" gives "shop-DE".
	Prefix string
	// LocalCurrencies are exported in their own currency, everything else
	// in EUR.
	LocalCurrencies []string
	Rates           Rates
	Logger          zerolog.Logger
	Now             func() time.Time
}

// NewExporter creates an exporter with CHF and GBP as local currencies.
func NewExporter(prefix string, rates Rates, logger zerolog.Logger) *Exporter {
	return &Exporter{
		Prefix:          prefix,
		LocalCurrencies: []string{"CHF", "GBP"},
		Rates:           rates,
		Logger:          logger.With().Str("component", "report").Logger(),
		Now:             time.Now,
	}
}

// Exportable reports whether a recommendation may go to production.
func Exportable(rec *model.Recommendation) bool {
	c := &rec.Context
	recom := rec.Decision.Price
	base := c.BasePrice

	if !model.Defined(recom) || !model.Defined(base) {
		return false
	}
	if rec.Decision.Change == model.ChangeNotEnoughData || !c.MasterSwitch {
		return false
	}
	return base > 0 && recom >= base*minPriceRatio && recom <= base
}

// Rows builds the export rows. A missing rate for a local currency is an
// error; nothing partial is returned.
func (e *Exporter) Rows(recs []model.Recommendation) ([]ExportRow, error) {
	from := e.Now().UTC().Truncate(time.Hour)

	rows := make([]ExportRow, 0, len(recs))
	skipped := 0
	for i := range recs {
		rec := &recs[i]
		if !Exportable(rec) {
			skipped++
			continue
		}

		currency := CurrencyFor(rec.Context.CountryCode)
		if !slices.Contains(e.LocalCurrencies, currency) {
			currency = BaseCurrency
		}
		rate, ok := e.Rates.Rate(currency)
		if !ok {
			return nil, fmt.Errorf("no conversion rate for %s (%s/%s)", currency, rec.Context.Style, rec.Context.CountryCode)
		}

		local := decimal.NewFromFloat(rec.Decision.Price).Mul(decimal.NewFromFloat(rate))

		status := StatusOriginal
		if rec.Decision.Price != rec.Context.BasePrice {
			status = StatusDiscount
		}

		rows = append(rows, ExportRow{
			Style:    rec.Context.Style,
			Price:    local.Floor().Add(priceEnding),
			Status:   status,
			From:     from,
			To:       exportUntil,
			Country:  e.exportCountry(rec.Context.CountryCode),
			Currency: currency,
		})
	}

	e.Logger.Info().Int("exported", len(rows)).Int("skipped", skipped).Msg("built export rows")
	return rows, nil
}

func (e *Exporter) exportCountry(country string) string {
	if country == "GB" {
		country = "UK"
	}
	if e.Prefix == "" {
		return country
	}
	return e.Prefix + "-" + country
}

// WriteExport writes rows as CSV.
func WriteExport(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Style,
			r.Price.StringFixed(2),
			r.Status,
			r.From.Format(exportTimeLayout),
			r.To.Format(exportTimeLayout),
			r.Country,
			r.Currency,
		}
		if err := cw.Write(EscapeCSVRow(record)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(x float64) string {
	if !model.Defined(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// WriteAudit writes every recommendation, exportable or not, with its trace.
func WriteAudit(w io.Writer, runID string, recs []model.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(auditHeader); err != nil {
		return err
	}
	for i := range recs {
		c := &recs[i].Context
		d := &recs[i].Decision
		record := []string{
			runID,
			c.Style,
			c.CountryCode,
			string(c.Category),
			string(c.GroupLogic),
			d.Strategy,
			string(d.Change),
			formatFloat(c.Price),
			formatFloat(c.BasePrice),
			formatFloat(d.Price),
			formatFloat(c.MinDiscount),
			formatFloat(c.MaxDiscount),
			strconv.Itoa(recs[i].LastChangedDaysAgo),
			strconv.FormatBool(c.MasterSwitch),
			d.Path.String(),
		}
		if err := cw.Write(EscapeCSVRow(record)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Files are the paths written by WriteFiles.
type Files struct {
	Export string
	Audit  string
}

// WriteFiles writes export_<stamp>.csv and audit_<stamp>.csv into dir.
func (e *Exporter) WriteFiles(dir, runID string, recs []model.Recommendation) (Files, error) {
	rows, err := e.Rows(recs)
	if err != nil {
		return Files{}, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("create export dir: %w", err)
	}

	stamp := e.Now().UTC().Format("20060102T1504")
	files := Files{
		Export: filepath.Join(dir, "export_"+stamp+".csv"),
		Audit:  filepath.Join(dir, "audit_"+stamp+".csv"),
	}

	if err := writeFile(files.Export, func(w io.Writer) error { return WriteExport(w, rows) }); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.Audit, func(w io.Writer) error { return WriteAudit(w, runID, recs) }); err != nil {
		return Files{}, err
	}

	e.Logger.Info().Str("export", files.Export).Str("audit", files.Audit).Msg("wrote report files")
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
