package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/bakery"
)

func TestBuildScenario_BakeryIsPriced(t *testing.T) {
	c, err := BuildScenario("bakery", testToday())
	require.NoError(t, err)

	next, report := bakery.OnCatalogChanged(c)

	assert.Empty(t, report.Faults)
	assert.Empty(t, report.Warnings)
	for _, sku := range next.SKUs {
		assert.NotNil(t, sku.CalculatedCost, sku.Name)
	}
	assert.Empty(t, bakery.Diagnose(next)[0].Details)
}

func TestBuildScenario_WholesaleWeek(t *testing.T) {
	// GIVEN/WHEN
	c, err := BuildScenario("wholesale-week", testToday())
	require.NoError(t, err)

	// THEN: three remitos, the first half paid, and no stock moved
	require.Len(t, c.Remitos, 3)
	assert.Equal(t, bakery.RemitoPartiallyPaid, c.Remitos[0].Status)
	assert.Equal(t, bakery.RemitoUnpaid, c.Remitos[1].Status)
	require.Len(t, c.Payments, 1)
	assert.Empty(t, c.StockMovements)
	assert.Equal(t, "118.8", bakery.ShopBalance(c, "café centro").String())
}

func TestBuildScenario_Unknown(t *testing.T) {
	_, err := BuildScenario("new-employee", testToday())
	assert.Error(t, err)
}

func TestLoadScenario_ReplacesCatalog(t *testing.T) {
	api := newTestAPI(t)

	list := decode[[]ScenarioDTO](t, api.do(t, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 3)

	rec := api.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "wholesale-week"})
	require.Equal(t, http.StatusOK, rec.Code)

	remitos := decode[[]RemitoDTO](t, api.do(t, http.MethodGet, "/api/remitos?store=Caf%C3%A9%20Centro", nil))
	assert.Len(t, remitos, 2)

	balance := decode[ShopBalanceDTO](t, api.do(t, http.MethodGet, "/api/shops/Caf%C3%A9%20Centro/balance", nil))
	assert.Equal(t, "118.8", balance.Balance.String())

	bad := api.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
