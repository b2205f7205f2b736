// Package bureau is a SOAP client for an external credit bureau model.
package bureau

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const (
	soapNamespace   = "http://www.w3.org/2003/05/soap-envelope"
	bureauNamespace = "http://bureau.gasp.local/"
)

// Client handles integration with the credit bureau
type Client struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger
}

// NewClient initializes a new bureau client
func NewClient(cfg *config.Config, log logrus.FieldLogger) *Client {
	return &Client{
		url: cfg.BureauURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates an AssessApplicant request
func (c *Client) buildSOAPRequest(profile models.ClientProfile, metrics models.DerivedMetrics) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	env := doc.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", soapNamespace)
	req := env.CreateElement("soap12:Body").CreateElement("AssessApplicant")
	req.CreateAttr("xmlns", bureauNamespace)

	req.CreateElement("ClientID").SetText(profile.ClientID)
	req.CreateElement("CreditScore").SetText(strconv.Itoa(profile.CreditScore))
	req.CreateElement("AnnualIncome").SetText(strconv.FormatFloat(profile.AnnualIncome, 'f', 2, 64))
	req.CreateElement("LoanAmount").SetText(strconv.FormatFloat(profile.LoanAmountRequested, 'f', 2, 64))
	req.CreateElement("CollateralValue").SetText(strconv.FormatFloat(profile.CollateralValue, 'f', 2, 64))
	req.CreateElement("EmploymentStatus").SetText(profile.EmploymentStatus)
	req.CreateElement("DebtToIncome").SetText(strconv.FormatFloat(metrics.DebtToIncomeRatio, 'f', 4, 64))
	req.CreateElement("CurrentBalance").SetText(strconv.FormatFloat(metrics.CurrentBalance, 'f', 2, 64))

	return doc.WriteToBytes()
}

// sendRequest sends the SOAP request to the bureau
func (c *Client) sendRequest(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", bureauNamespace+"AssessApplicant")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Bureau XML response: %s", string(raw))
	return raw, nil
}

// parseXMLResponse reads the approval probability and risk band
func (c *Client) parseXMLResponse(raw []byte) (float64, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return 0, "", fmt.Errorf("failed to parse XML: %w", err)
	}

	result := doc.FindElement("//AssessApplicantResult")
	if result == nil {
		return 0, "", fmt.Errorf("no assessment result found in XML")
	}
	probElement := result.FindElement("./ApprovalProbability")
	if probElement == nil {
		return 0, "", fmt.Errorf("approval probability not found in XML")
	}
	prob, err := strconv.ParseFloat(strings.TrimSpace(probElement.Text()), 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse approval probability: %w", err)
	}
	if prob < 0 || prob > 1 {
		return 0, "", fmt.Errorf("approval probability %v out of range", prob)
	}

	var band string
	if b := result.FindElement("./Band"); b != nil {
		band = strings.TrimSpace(b.Text())
	}
	return prob, band, nil
}

// Signal asks the bureau for an approval probability. It implements scoring.CreditModel.
func (c *Client) Signal(ctx context.Context, profile models.ClientProfile, metrics models.DerivedMetrics) (string, error) {
	body, err := c.buildSOAPRequest(profile, metrics)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	raw, err := c.sendRequest(ctx, body)
	if err != nil {
		return "", err
	}
	prob, band, err := c.parseXMLResponse(raw)
	if err != nil {
		return "", err
	}

	signal := fmt.Sprintf("approval probability %.0f%%", prob*100)
	if band != "" {
		signal += fmt.Sprintf(" (band %s)", band)
	}
	c.log.WithField("client_id", profile.ClientID).Infof("Bureau signal: %s", signal)
	return signal, nil
}
