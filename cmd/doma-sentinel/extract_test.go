package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrom(t *testing.T) {
	rec, err := extractFrom(strings.NewReader(`{"events":[{"name":"ai.xyz","eventData":{"payment":{"price":"1000000000000000000","currencySymbol":"ETH"}}}],"lastId":3}`))
	require.NoError(t, err)
	assert.Equal(t, "ai.xyz", rec.DomainName)
	assert.Equal(t, "1000000000000000000", rec.PriceWei.String())

	rec, err = extractFrom(strings.NewReader(`{"name":"solo.com","type":"NAME_TOKEN_LISTED"}`))
	require.NoError(t, err)
	assert.Equal(t, "solo.com", rec.DomainName)

	_, err = extractFrom(strings.NewReader(`{"events":[]}`))
	assert.Error(t, err)

	_, err = extractFrom(strings.NewReader(`not json`))
	assert.Error(t, err)
}
