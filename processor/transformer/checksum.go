package transformer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor"
)

// ChecksumTransformer rewrites seller and token addresses in EIP-55 form.
// It runs after filtering, so seller matching still sees the raw value.
type ChecksumTransformer struct{}

func NewChecksumTransformer() *ChecksumTransformer {
	return &ChecksumTransformer{}
}

// Process implements processor.EventProcessor.
func (c *ChecksumTransformer) Process(rec *models.Record) (*models.Record, error) {
	out := rec.Clone()
	out.SellerAddress = checksum(out.SellerAddress)
	out.TokenAddress = checksum(out.TokenAddress)
	return out, nil
}

func checksum(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

var _ processor.EventProcessor = (*ChecksumTransformer)(nil)
