package metrics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	reportTitle    = "Reporte de Distribución"
	reportSubtitle = "Sistema de Seguimiento de Donaciones"
	margin         = 15.0
)

// Report is the printable distribution report.
type Report struct {
	Metrics     *Metrics
	Donors      []DonationDonors
	GeneratedAt time.Time
}

type rgb struct{ r, g, b int }

var (
	colorPrimary = rgb{41, 98, 255}
	colorText    = rgb{33, 37, 41}
	colorMuted   = rgb{108, 117, 125}
	colorHeader  = rgb{232, 240, 254}
	colorBox     = rgb{245, 247, 250}
)

// reportWriter carries the document and its UTF-8 to cp1252 translator.
type reportWriter struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	date string
}

// Write renders the report as PDF into w.
func (r Report) Write(w io.Writer) error {
	if r.Metrics == nil {
		return errors.New("report: no metrics")
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(reportTitle, true)
	pdf.SetAuthor(reportSubtitle, true)
	pdf.SetMargins(margin, 20, margin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	rw := &reportWriter{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		date: r.GeneratedAt.Format("02/01/2006 15:04"),
	}
	pdf.SetFooterFunc(rw.footer)

	rw.cover()
	rw.summary(r.Metrics)
	rw.periods(r.Metrics)
	rw.states(r.Metrics)
	if len(r.Donors) > 0 {
		rw.donors(r.Donors)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return pdf.Output(w)
}

func (rw *reportWriter) setColor(c rgb) {
	rw.pdf.SetTextColor(c.r, c.g, c.b)
}

func (rw *reportWriter) footer() {
	pdf := rw.pdf
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetY(-12)
	pdf.SetFont("Helvetica", "", 8)
	rw.setColor(colorMuted)

	third := (pageWidth - 2*margin) / 3
	pdf.CellFormat(third, 6, rw.tr(reportSubtitle), "", 0, "L", false, 0, "")
	pdf.CellFormat(third, 6, rw.tr("Generado: "+rw.date), "", 0, "C", false, 0, "")
	pdf.CellFormat(third, 6, rw.tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "R", false, 0, "")
}

func (rw *reportWriter) cover() {
	pdf := rw.pdf
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.Rect(0, 0, pageWidth, 40, "F")

	pdf.SetY(75)
	pdf.SetFont("Helvetica", "B", 24)
	rw.setColor(colorText)
	pdf.CellFormat(0, 12, rw.tr(reportTitle), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	rw.setColor(colorMuted)
	pdf.CellFormat(0, 8, rw.tr(reportSubtitle), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 8, rw.tr("Informe generado el: "+rw.date), "", 1, "C", false, 0, "")
}

func (rw *reportWriter) pageHeader(title string) {
	pdf := rw.pdf
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.Rect(0, 0, pageWidth, 20, "F")

	pdf.SetXY(margin, 7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 7, rw.tr(title), "", 1, "C", false, 0, "")
	pdf.SetY(28)
}

func (rw *reportWriter) sectionTitle(title string) {
	pdf := rw.pdf
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	rw.setColor(colorPrimary)
	pdf.CellFormat(0, 8, rw.tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(3)
}

func (rw *reportWriter) bullet(text string) {
	pdf := rw.pdf
	pdf.SetFont("Helvetica", "", 9)
	rw.setColor(colorText)
	pdf.SetX(margin + 5)
	pdf.MultiCell(0, 5, rw.tr("• "+text), "", "L", false)
}

// boxes draws a row of value/label tiles.
func (rw *reportWriter) boxes(values, labels []string) {
	pdf := rw.pdf
	pageWidth, _ := pdf.GetPageSize()
	const gap, height = 4.0, 24.0
	width := (pageWidth - 2*margin - gap*float64(len(labels)-1)) / float64(len(labels))
	y := pdf.GetY()

	for i, label := range labels {
		x := margin + float64(i)*(width+gap)
		pdf.SetFillColor(colorBox.r, colorBox.g, colorBox.b)
		pdf.Rect(x, y, width, height, "F")

		pdf.SetXY(x, y+4)
		pdf.SetFont("Helvetica", "B", 16)
		rw.setColor(colorPrimary)
		pdf.CellFormat(width, 8, rw.tr(values[i]), "", 0, "C", false, 0, "")

		pdf.SetXY(x, y+14)
		pdf.SetFont("Helvetica", "", 8)
		rw.setColor(colorMuted)
		pdf.CellFormat(width, 6, rw.tr(label), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(margin, y+height+6)
}

// table draws a header row and body rows; widths are fractions of the
// printable width.
func (rw *reportWriter) table(header []string, widths []float64, rows [][]string) {
	pdf := rw.pdf
	pageWidth, _ := pdf.GetPageSize()
	printable := pageWidth - 2*margin

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(colorHeader.r, colorHeader.g, colorHeader.b)
	rw.setColor(colorText)
	for i, h := range header {
		pdf.CellFormat(printable*widths[i], 7, rw.tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 {
				align = "C"
			}
			pdf.CellFormat(printable*widths[i], 6, rw.tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (rw *reportWriter) summary(m *Metrics) {
	rw.pageHeader("Resumen General")

	rw.sectionTitle("1.1 Indicadores principales")
	rw.boxes([]string{itoa(m.TotalRequests), itoa(m.DeliveredDonations), itoa(m.UnansweredRequests)},
		[]string{"Solicitudes Atendidas", "Donaciones Entregadas", "Solicitudes Sin Responder"})
	rw.boxes([]string{itoa(m.ApprovedRequests), itoa(m.RejectedRequests), itoa(m.PendingDonations)},
		[]string{"Solicitudes Aprobadas", "Solicitudes Rechazadas", "Donaciones Pendientes"})
	rw.boxes([]string{FormatDays(m.AvgResponseDays), FormatDays(m.AvgDeliveryDays)},
		[]string{"Tiempo Prom. Respuesta (días)", "Tiempo Prom. Entrega (días)"})

	rw.sectionTitle("1.2 Productos más solicitados")
	products := SortedByValue(m.TopProducts)
	var total int64
	for _, p := range products {
		total += p.Value
	}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.Label, itoa(p.Value), fmt.Sprintf("%.1f%%", Percent(p.Value, total))})
	}
	rw.table([]string{"Producto", "Cantidad", "% del Total"}, []float64{0.5, 0.25, 0.25}, rows)

	if len(products) > 0 {
		top := products[0]
		rw.bullet(fmt.Sprintf("El producto más solicitado es %q con %d solicitudes (%.1f%% del total)", top.Label, top.Value, Percent(top.Value, total)))
		if len(products) > 1 {
			second := products[1]
			rw.bullet(fmt.Sprintf("El segundo producto más solicitado es %q con %d solicitudes (%.1f%% del total)", second.Label, second.Value, Percent(second.Value, total)))
		}
		rw.bullet(fmt.Sprintf("En total se muestran los %d tipos diferentes de productos más solicitados", len(products)))
	}
}

func (rw *reportWriter) periods(m *Metrics) {
	rw.pageHeader("Análisis por Periodos y Ubicación")

	rw.sectionTitle("2.1 Solicitudes por Mes")
	months := SortedByMonth(m.RequestsByMonth)
	rows := make([][]string, 0, len(months))
	for _, c := range months {
		rows = append(rows, []string{c.Label, itoa(c.Value)})
	}
	rw.table([]string{"Mes", "Solicitudes"}, []float64{0.6, 0.4}, rows)

	if len(months) > 0 {
		maxMonth, minMonth := months[0], months[0]
		var sum int64
		for _, c := range months {
			if c.Value > maxMonth.Value {
				maxMonth = c
			}
			if c.Value < minMonth.Value {
				minMonth = c
			}
			sum += c.Value
		}
		rw.bullet(fmt.Sprintf("Mes con mayor número de solicitudes: %s (%d solicitudes)", maxMonth.Label, maxMonth.Value))
		rw.bullet(fmt.Sprintf("Mes con menor número de solicitudes: %s (%d solicitudes)", minMonth.Label, minMonth.Value))
		rw.bullet(fmt.Sprintf("Promedio mensual de solicitudes: %.1f solicitudes", float64(sum)/float64(len(months))))
	}

	rw.sectionTitle("2.2 Solicitudes por Provincia")
	provinces := SortedByValue(m.RequestsByProvince)
	rows = make([][]string, 0, len(provinces))
	for _, c := range provinces {
		rows = append(rows, []string{c.Label, itoa(c.Value), fmt.Sprintf("%.1f%%", Percent(c.Value, m.TotalRequests))})
	}
	rw.table([]string{"Provincia", "Solicitudes", "% del Total"}, []float64{0.5, 0.25, 0.25}, rows)

	if len(provinces) > 0 {
		top := provinces[0]
		rw.bullet(fmt.Sprintf("%s representa el %.1f%% del total de solicitudes", top.Label, Percent(top.Value, m.TotalRequests)))
		rw.bullet(fmt.Sprintf("%d provincias han registrado solicitudes en el sistema", len(provinces)))
	}
}

func (rw *reportWriter) states(m *Metrics) {
	rw.pageHeader("Estado de Solicitudes y Donaciones")

	rw.sectionTitle("3.1 Estado de Solicitudes")
	total := m.TotalRequests
	rw.table([]string{"Estado", "Cantidad", "Porcentaje"}, []float64{0.5, 0.25, 0.25}, [][]string{
		{"Sin Responder", itoa(m.UnansweredRequests), fmt.Sprintf("%.1f%%", Percent(m.UnansweredRequests, total))},
		{"Aprobadas", itoa(m.ApprovedRequests), fmt.Sprintf("%.1f%%", Percent(m.ApprovedRequests, total))},
		{"Rechazadas", itoa(m.RejectedRequests), fmt.Sprintf("%.1f%%", Percent(m.RejectedRequests, total))},
	})

	rw.sectionTitle("3.2 Estado de Donaciones")
	donations := m.PendingDonations + m.DeliveredDonations
	rw.table([]string{"Estado", "Cantidad", "Porcentaje"}, []float64{0.5, 0.25, 0.25}, [][]string{
		{"Pendientes", itoa(m.PendingDonations), fmt.Sprintf("%.1f%%", Percent(m.PendingDonations, donations))},
		{"Entregadas", itoa(m.DeliveredDonations), fmt.Sprintf("%.1f%%", Percent(m.DeliveredDonations, donations))},
	})
	rw.bullet("Tiempo promedio de entrega: " + FormatDays(m.AvgDeliveryDays))
}

func (rw *reportWriter) donors(items []DonationDonors) {
	rw.pageHeader("Donaciones y Donantes")

	rw.sectionTitle("4.1 Agradecimientos")
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		delivered := "No asignada"
		if d.DeliveredAt != nil && *d.DeliveredAt != "" {
			if t, err := time.Parse(time.RFC3339, *d.DeliveredAt); err == nil {
				delivered = t.Format("02/01/2006")
			} else if len(*d.DeliveredAt) >= 10 {
				delivered = (*d.DeliveredAt)[:10]
			}
		}
		rows = append(rows, []string{d.Code, delivered, strconv.Itoa(len(d.Donors))})
	}
	rw.table([]string{"Código", "Fecha de Entrega", "Donantes"}, []float64{0.4, 0.35, 0.25}, rows)

	for _, d := range items {
		if len(d.Donors) > 0 {
			rw.bullet(d.Code + ": " + d.Gratitude())
		}
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
