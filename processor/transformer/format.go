package transformer

import (
	"strings"

	"github.com/web3tea/doma-sentinel/models"
)

const DefaultExplorerURL = "https://explorer-testnet.doma.xyz"

// Formatter renders records as the plain text block sent to chat sinks.
type Formatter struct {
	ExplorerURL string
}

func NewFormatter(explorerURL string) *Formatter {
	if explorerURL == "" {
		explorerURL = DefaultExplorerURL
	}
	return &Formatter{ExplorerURL: strings.TrimRight(explorerURL, "/")}
}

// Format is a pure function of its inputs.
func (f *Formatter) Format(rec *models.Record, lastID string) string {
	return Format(rec, lastID, f.ExplorerURL)
}

// Format renders rec. The price is printed to six decimals followed by the
// currency symbol; links are only added when the hash or address is known.
func Format(rec *models.Record, lastID, explorerURL string) string {
	if rec == nil {
		rec = &models.Record{}
	}
	explorerURL = strings.TrimRight(explorerURL, "/")

	var sb strings.Builder
	sb.WriteString("🌐 Doma API Data:\n\n")
	sb.WriteString("📝 Name: " + orUnknown(rec.DomainName) + "\n")
	sb.WriteString("🏷️ Type: " + orUnknown(rec.EventType) + "\n")
	sb.WriteString("💰 Price: " + FormatPrice(rec) + "\n")
	sb.WriteString("📅 Created: " + orUnknown(rec.CreatedAt) + "\n")
	if lastID != "" {
		sb.WriteString("🆔 LastId: " + lastID + "\n")
	}
	if rec.TransactionHash != "" {
		sb.WriteString("🔗 Transaction: " + explorerURL + "/tx/" + rec.TransactionHash + "\n")
	}
	if rec.TokenAddress != "" {
		sb.WriteString("🔗 Token Address: " + explorerURL + "/address/" + rec.TokenAddress + "\n")
	}
	return sb.String()
}

// FormatPrice returns e.g. "0.500000 ETH", or "N/A" when the price is absent.
func FormatPrice(rec *models.Record) string {
	if !rec.HasPrice() {
		return "N/A"
	}
	s := rec.DisplayPrice().StringFixed(6)
	if rec.CurrencySymbol != "" {
		s += " " + rec.CurrencySymbol
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
