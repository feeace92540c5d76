package validator

import (
	"testing"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(t *testing.T, err error) []string {
	t.Helper()
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)

	paths := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		paths = append(paths, issue.Path)
	}
	return paths
}

func TestDecodeListStrategies(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		body := []byte(`[{"title":"Dip buyer","status":"active","strategyTemplateName":"SeaDogDiscountScheme","symbolIds":[3,1]}]`)

		payloads, err := DecodeList[model.StrategyCreate](v, body)
		require.NoError(t, err)
		require.Len(t, payloads, 1)
		assert.Equal(t, []int64{3, 1}, payloads[0].SymbolIDs)
		assert.Equal(t, model.TemplateSeaDogDiscountScheme, payloads[0].StrategyTemplateName)
	})

	t.Run("issues carry item index and json names", func(t *testing.T) {
		body := []byte(`[{"title":"ok","status":"active","strategyTemplateName":"NoOp"},{"status":"paused","strategyTemplateName":"NoOp","symbolIds":[0]}]`)

		_, err := DecodeList[model.StrategyCreate](v, body)
		assert.ElementsMatch(t, []string{"[1].title", "[1].status", "[1].symbolIds[0]"}, issuePaths(t, err))
	})

	t.Run("empty array", func(t *testing.T) {
		_, err := DecodeList[model.StrategyCreate](v, []byte(`[]`))
		assert.Equal(t, []string{""}, issuePaths(t, err))
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeList[model.StrategyCreate](v, []byte(`[{"title":`))
		var verr *apperr.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := DecodeList[model.StrategyCreate](v, []byte(`[{"title":5}]`))
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "type", verr.Issues[0].Rule)
	})

	t.Run("missing body", func(t *testing.T) {
		_, err := DecodeList[model.StrategyCreate](v, nil)
		var verr *apperr.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestSchemeDecimalRules(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		body      string
		wantPaths []string
	}{
		{
			name: "valid scheme",
			body: `{"strategyId":1,"status":"active","buyAtPercentile":"10","sellAtPercentile":90,"minimumGainPercent":"2.5","timeframeInDays":30,"brokerApiKey":"k","brokerApiSecret":"s"}`,
		},
		{
			name:      "percentile out of range",
			body:      `{"strategyId":1,"status":"active","buyAtPercentile":"-1","sellAtPercentile":"101","minimumGainPercent":"1","timeframeInDays":30,"brokerApiKey":"k","brokerApiSecret":"s"}`,
			wantPaths: []string{"buyAtPercentile", "sellAtPercentile"},
		},
		{
			name:      "buy not below sell",
			body:      `{"strategyId":1,"status":"active","buyAtPercentile":"60","sellAtPercentile":"40","minimumGainPercent":"1","timeframeInDays":30,"brokerApiKey":"k","brokerApiSecret":"s"}`,
			wantPaths: []string{"sellAtPercentile"},
		},
		{
			name:      "missing credentials",
			body:      `{"strategyId":1,"status":"inactive","buyAtPercentile":"10","sellAtPercentile":"20","minimumGainPercent":"1","timeframeInDays":30}`,
			wantPaths: []string{"brokerApiKey", "brokerApiSecret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOne[model.SeaDogDiscountSchemeCreate](v, []byte(tt.body))
			if len(tt.wantPaths) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.wantPaths, issuePaths(t, err))
		})
	}
}

func TestDecimalBoundsAreExact(t *testing.T) {
	v := New()
	scheme := func(buy string) string {
		return `{"strategyId":1,"status":"active","buyAtPercentile":"` + buy +
			`","sellAtPercentile":"100","minimumGainPercent":"1","timeframeInDays":30,"brokerApiKey":"k","brokerApiSecret":"s"}`
	}

	_, err := DecodeOne[model.SeaDogDiscountSchemeCreate](v, []byte(scheme("99.99999999999999999")))
	assert.NoError(t, err)

	_, err = DecodeOne[model.SeaDogDiscountSchemePatch](v, []byte(`{"sellAtPercentile":"100.00000000000000001"}`))
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "sellAtPercentile", verr.Issues[0].Path)
	assert.Equal(t, "lte", verr.Issues[0].Rule)
	assert.Equal(t, "must be at most 100", verr.Issues[0].Message)

	_, err = DecodeOne[model.OrderCreate](v, []byte(`{"strategyId":1,"symbolId":1,"side":"buy","quantity":"0.000000000000000000001","limitPriceCents":100,"status":"open"}`))
	assert.NoError(t, err)

	_, err = DecodeOne[model.OrderCreate](v, []byte(`{"strategyId":1,"symbolId":1,"side":"buy","quantity":"0","limitPriceCents":100,"status":"open"}`))
	assert.Equal(t, []string{"quantity"}, issuePaths(t, err))
}

func TestSchemePatchOrderingOnlyWhenBothPresent(t *testing.T) {
	v := New()

	_, err := DecodeOne[model.SeaDogDiscountSchemePatch](v, []byte(`{"buyAtPercentile":"95"}`))
	assert.NoError(t, err)

	_, err = DecodeOne[model.SeaDogDiscountSchemePatch](v, []byte(`{"buyAtPercentile":"95","sellAtPercentile":"5"}`))
	assert.Equal(t, []string{"sellAtPercentile"}, issuePaths(t, err))
}

func TestDecodeIdentifiedList(t *testing.T) {
	v := New()

	items, err := DecodeIdentifiedList[model.StrategyPatch](v, []byte(`[{"id":5,"status":"active"},{"id":7,"symbolIds":[]}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(5), items[0].ID)
	assert.Equal(t, map[string]interface{}{"status": "active"}, items[0].Payload.Changes().Columns)
	assert.Nil(t, items[0].Payload.SymbolIDs)

	assert.Equal(t, int64(7), items[1].ID)
	assert.NotNil(t, items[1].Payload.SymbolIDs)
	assert.Empty(t, items[1].Payload.SymbolIDs)

	_, err = DecodeIdentifiedList[model.StrategyPatch](v, []byte(`[{"status":"active"}]`))
	assert.Equal(t, []string{"[0].id"}, issuePaths(t, err))
}

func TestStructReportsOutboundIssues(t *testing.T) {
	v := New()

	type body struct {
		ID     int64  `json:"id" validate:"gt=0"`
		Status string `json:"status" validate:"oneof=active inactive"`
	}

	issues := v.Struct(body{ID: 0, Status: "unknown"})
	require.Len(t, issues, 2)
	assert.Equal(t, "id", issues[0].Path)
	assert.Equal(t, "oneof", issues[1].Rule)

	assert.Empty(t, v.Struct(body{ID: 1, Status: "active"}))
}
