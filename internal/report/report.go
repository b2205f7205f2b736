// Package report renders assessment results as JSON, YAML or XML documents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/utils"
	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	XML  Format = "xml"
)

// ParseFormat accepts json, yaml/yml or xml in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "xml":
		return XML, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

// ContentType is the HTTP media type of the format
func (f Format) ContentType() string {
	switch f {
	case YAML:
		return "application/yaml"
	case XML:
		return "application/xml"
	}
	return "application/json"
}

// Write encodes results to w. A single result is written as one document, several as a list.
func Write(w io.Writer, format Format, results ...models.AssessmentResult) error {
	var v any = results
	if len(results) == 1 {
		v = results[0]
	}
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case XML:
		doc := XMLDocument(results...)
		if _, err := doc.WriteTo(w); err != nil {
			return fmt.Errorf("failed to write xml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// XMLDocument builds the XML report. A single result becomes the <Assessment> root;
// several are wrapped in <Assessments>.
func XMLDocument(results ...models.AssessmentResult) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	if len(results) == 1 {
		writeAssessment(&doc.Element, results[0])
	} else {
		root := doc.CreateElement("Assessments")
		root.CreateAttr("count", strconv.Itoa(len(results)))
		for _, res := range results {
			writeAssessment(root, res)
		}
	}
	doc.Indent(2)
	return doc
}

func writeAssessment(parent *etree.Element, res models.AssessmentResult) {
	a := parent.CreateElement("Assessment")
	a.CreateAttr("id", res.ID)
	a.CreateAttr("created", res.CreatedAt.UTC().Format(time.RFC3339))
	a.CreateAttr("documents", strconv.Itoa(res.DocumentCount))

	if res.Failed() {
		e := a.CreateElement("Error")
		e.CreateAttr("code", res.ErrorCode)
		e.SetText(res.Error)
		writeLog(a, res.PipelineLog)
		return
	}

	p := res.Profile
	c := a.CreateElement("Client")
	c.CreateAttr("id", res.ClientID)
	text(c, "Name", p.FullName())
	if p.SSN != "" {
		text(c, "SSN", utils.MaskSSN(p.SSN))
	}
	text(c, "Address", p.Address)
	text(c, "EmploymentStatus", p.EmploymentStatus)
	text(c, "CreditScore", strconv.Itoa(p.CreditScore))
	money(c, "AnnualIncome", p.AnnualIncome)
	money(c, "LoanAmountRequested", p.LoanAmountRequested)
	money(c, "CollateralValue", p.CollateralValue)
	money(c, "AlimonyPaymentsMonthly", p.AlimonyPaymentsMonthly)
	s := text(c, "SentimentScore", strconv.FormatFloat(p.SentimentScore, 'f', 2, 64))
	s.CreateAttr("disclosed", strconv.FormatBool(p.SentimentDisclosed))

	m := res.Metrics
	me := a.CreateElement("Metrics")
	money(me, "MonthlyIncome", m.MonthlyIncome)
	money(me, "EstimatedLoanPayment", m.EstimatedLoanPayment)
	ratio(me, "LoanToIncome", m.LoanToIncome)
	ratio(me, "DebtToIncomeRatio", m.DebtToIncomeRatio)
	money(me, "CurrentBalance", m.CurrentBalance)
	ratio(me, "BalanceToCollateral", m.BalanceToCollateral)
	money(me, "TotalDebit", m.TotalDebit)
	money(me, "TotalCredit", m.TotalCredit)
	text(me, "TransactionCount", strconv.Itoa(m.TransactionCount))
	if len(m.MonthlyActivity) > 0 {
		act := me.CreateElement("MonthlyActivity")
		for _, ma := range m.MonthlyActivity {
			mo := act.CreateElement("Month")
			mo.CreateAttr("period", ma.Month)
			mo.CreateAttr("credit", formatMoney(ma.Credit))
			mo.CreateAttr("debit", formatMoney(ma.Debit))
		}
	}

	d := a.CreateElement("Decision")
	text(d, "RiskScore", strconv.Itoa(res.RiskScore))
	text(d, "FraudRisk", string(res.FraudRisk))
	text(d, "Viability", string(res.Viability))
	text(d, "Approval", string(res.Approval))
	factors := d.CreateElement("RiskFactors")
	for _, f := range res.RiskFactors {
		text(factors, "Factor", f)
	}
	text(d, "Insights", res.Insights)
	if res.ModelSignal != "" {
		text(d, "ModelSignal", res.ModelSignal)
	}
	writeLog(a, res.PipelineLog)
}

func writeLog(parent *etree.Element, lines []string) {
	l := parent.CreateElement("PipelineLog")
	for _, line := range lines {
		text(l, "Entry", line)
	}
}

func text(parent *etree.Element, tag, value string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(value)
	return e
}

func money(parent *etree.Element, tag string, v float64) {
	text(parent, tag, formatMoney(v))
}

func ratio(parent *etree.Element, tag string, v float64) {
	text(parent, tag, strconv.FormatFloat(v, 'f', 4, 64))
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
