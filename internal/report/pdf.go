// Package report renders prediagnosis records as downloadable PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"github.com/fast-aid/triage-platform/internal/model"
)

// Common DejaVu locations across the base images we deploy on.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const textWidth = 500

// Render produces a PDF report for a prediagnosis record.
func Render(rec *model.Prediagnosis, patient *model.User) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("load report font: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Prediagnosis Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", rec.CreatedAt.Format(time.RFC1123)))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient: %s", patient.Name))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Record ID: %s", rec.ID))
	pdf.Br(25)

	sections := []struct {
		heading string
		body    string
	}{
		{"Potential Diseases", rec.PotentialDiseases},
		{"Recommended Course of Action", rec.CourseOfAction},
		{"Support", rec.SupportMessages},
		{"Recommended Practitioners", rec.RecommendedPractitioners},
	}
	for _, sec := range sections {
		if err := writeSection(&pdf, sec.heading, sec.body); err != nil {
			return nil, err
		}
	}

	pdf.SetY(800)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "This report is generated automatically and is not a medical diagnosis.")

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *gopdf.GoPdf, heading, body string) error {
	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, heading)
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return err
	}
	if body == "" {
		body = "-"
	}
	lines, _ := pdf.SplitText(body, textWidth)
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
	pdf.Br(15)
	return nil
}
