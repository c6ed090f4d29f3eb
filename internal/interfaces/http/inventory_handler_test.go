package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
)

const (
	prodID    = "prod-1"
	bodegaID  = "loc-bodega"
	tiendaID  = "loc-tienda"
	unknownID = "no-existe"
)

func buildInventoryApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(entity.Product{ID: prodID, SKU: "CAF-500", Name: "Café 500g", MinQuantity: 10, Cost: decimal.NewFromInt(3)})
	store.PutLocation(entity.Location{ID: bodegaID, Name: "Bodega"})
	store.PutLocation(entity.Location{ID: tiendaID, Name: "Tienda"})

	engine := inventory.NewRecordMovementUseCase(store, store.Stock(), store.Products(), nil, nil, nil,
		inventory.EngineConfig{MaxRetries: 3, TxTimeout: 2 * time.Second})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Engine:    engine,
		Query:     inventory.NewStockQueryUseCase(store.Stock(), store.Movements(), store.Products()),
		LowStock:  inventory.NewLowStockUseCase(store.LowStock()),
		Valuation: inventory.NewValuationReportUseCase(store.Stock(), store.Products(), store.Locations(), pdf.NewMarotoPDFGenerator()),
		JWTSecret: testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func movement(typ string, qty any, from, to string) map[string]any {
	m := map[string]any{"type": typ, "product_id": prodID, "quantity": qty}
	if from != "" {
		m["from_location_id"] = from
	}
	if to != "" {
		m["to_location_id"] = to
	}
	return m
}

func TestRecordMovement_TransferFlow(t *testing.T) {
	app := buildInventoryApp(t)

	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("RECEIPT", 100, "", bodegaID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.MovementResponse](t, resp)
	assert.Equal(t, testUserID, created.ActorID, "el actor sale del token")
	assert.NotEmpty(t, created.ID)

	resp = call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("TRANSFER", 30, bodegaID, tiendaID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/stock", "vendedor", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[dto.ProductStockSummaryDTO](t, resp)
	assert.Equal(t, int64(100), summary.Total)
	assert.Equal(t, "IN_STOCK", summary.Status)
	assert.True(t, decimal.NewFromInt(300).Equal(summary.Value))
	require.Len(t, summary.Locations, 2)

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/stock/"+tiendaID, "vendedor", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decode[dto.QuantityResponse](t, resp)
	assert.Equal(t, int64(30), q.Quantity)
}

func TestRecordMovement_ErrorMapping(t *testing.T) {
	app := buildInventoryApp(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 5, "", bodegaID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"cantidad cero", movement("RECEIPT", 0, "", bodegaID), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"cantidad fraccionaria", movement("RECEIPT", "1.5", "", bodegaID), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"traslado misma ubicación", movement("TRANSFER", 1, bodegaID, bodegaID), http.StatusBadRequest, "INVALID_TRANSFER"},
		{"tipo desconocido", movement("LOAN", 1, "", bodegaID), http.StatusBadRequest, "VALIDATION"},
		{"ubicación inexistente", movement("RECEIPT", 1, "", unknownID), http.StatusNotFound, "UNKNOWN_REFERENCE"},
		{"stock insuficiente", movement("SHIPMENT", 999, bodegaID, ""), http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			body := decode[dto.ErrorResponse](t, resp)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRecordMovement_InsufficientStockDetails(t *testing.T) {
	app := buildInventoryApp(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 5, "", bodegaID), nil)
	resp.Body.Close()

	resp = call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("TRANSFER", 8, bodegaID, tiendaID), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, bodegaID, body.Details["location_id"])
	assert.EqualValues(t, 8, body.Details["requested"])
	assert.EqualValues(t, 5, body.Details["available"])
}

func TestRecordMovement_RoleRequired(t *testing.T) {
	app := buildInventoryApp(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "vendedor", movement("RECEIPT", 5, "", bodegaID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp2 := call(t, app, http.MethodGet, "/api/inventory/low-stock", "", nil, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestRecordMovement_IdempotencyHeader(t *testing.T) {
	app := buildInventoryApp(t)
	headers := map[string]string{"Idempotency-Key": "recepcion-001"}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 7, "", bodegaID), headers)
			if resp.StatusCode != http.StatusCreated {
				resp.Body.Close()
				return
			}
			m := decode[dto.MovementResponse](t, resp)
			mu.Lock()
			ids[m.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 1, "todas las respuestas devuelven el mismo movimiento")

	resp := call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/stock/"+bodegaID, "admin", nil, nil)
	q := decode[dto.QuantityResponse](t, resp)
	assert.Equal(t, int64(7), q.Quantity, "aplicado una sola vez")

	resp = call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 9, "", bodegaID), headers)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", body.Code)
}

func TestRecordMovement_IdempotencyKeyAfterOtherRequests(t *testing.T) {
	app := buildInventoryApp(t)
	first := map[string]string{"Idempotency-Key": "key-AAAAAAAA"}

	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 5, "", bodegaID), first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	original := decode[dto.MovementResponse](t, resp)

	for i := 0; i < 20; i++ {
		other := map[string]string{"Idempotency-Key": fmt.Sprintf("key-%08d", i)}
		resp = call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 1, "", tiendaID), other)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp = call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 5, "", bodegaID), first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	replay := decode[dto.MovementResponse](t, resp)
	assert.Equal(t, original.ID, replay.ID, "la repetición devuelve el movimiento original")
	assert.Equal(t, "key-AAAAAAAA", replay.IdempotencyKey)

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/stock/"+bodegaID, "admin", nil, nil)
	q := decode[dto.QuantityResponse](t, resp)
	assert.Equal(t, int64(5), q.Quantity, "la repetición no vuelve a aplicar stock")

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/stock/"+tiendaID, "admin", nil, nil)
	q = decode[dto.QuantityResponse](t, resp)
	assert.Equal(t, int64(20), q.Quantity)
}

func TestListMovements_FiltersAndValidation(t *testing.T) {
	app := buildInventoryApp(t)
	for _, m := range []map[string]any{
		movement("RECEIPT", 20, "", bodegaID),
		movement("TRANSFER", 5, bodegaID, tiendaID),
		movement("SHIPMENT", 1, tiendaID, ""),
	} {
		resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", m, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := call(t, app, http.MethodGet, "/api/inventory/movements?location_id="+tiendaID, "vendedor", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.MovementListResponse](t, resp)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "SHIPMENT", list.Items[0].Type)

	resp = call(t, app, http.MethodGet, "/api/inventory/movements?product_id="+prodID+"&limit=1", "vendedor", nil, nil)
	list = decode[dto.MovementListResponse](t, resp)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 3, list.Page.Total)

	resp = call(t, app, http.MethodGet, "/api/inventory/movements?from=ayer", "vendedor", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/inventory/movements?limit=9999", "vendedor", nil, nil)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Contains(t, body.Details, "limit")
}

func TestLowStockAndReconcile(t *testing.T) {
	app := buildInventoryApp(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 4, "", tiendaID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = call(t, app, http.MethodGet, "/api/inventory/low-stock", "vendedor", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[struct {
		Total int                   `json:"total"`
		Items []dto.LowStockItemDTO `json:"items"`
	}](t, resp)
	require.Equal(t, 1, low.Total)
	assert.Equal(t, "LOW_STOCK", low.Items[0].Status)
	assert.Equal(t, int64(11), low.Items[0].SuggestedOrderQty) // ceil(10*1.5)=15, 15-4

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/reconcile", "bodeguero", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/inventory/products/"+prodID+"/reconcile", "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[dto.ReconciliationDTO](t, resp)
	assert.True(t, rec.Consistent)
	assert.Equal(t, 1, rec.MovementCount)
}

func TestValuationPDF(t *testing.T) {
	app := buildInventoryApp(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/movements", "admin", movement("RECEIPT", 12, "", bodegaID), nil)
	resp.Body.Close()

	resp = call(t, app, http.MethodGet, "/api/inventory/reports/valuation.pdf?product_id="+prodID, "admin", nil, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	missing := call(t, app, http.MethodGet, "/api/inventory/reports/valuation.pdf", "admin", nil, nil)
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
	missing.Body.Close()

	unknown := call(t, app, http.MethodGet, "/api/inventory/reports/valuation.pdf?product_id="+unknownID, "admin", nil, nil)
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)
	unknown.Body.Close()
}
