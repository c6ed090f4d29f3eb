package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// retryAfterSeconds sugerido al cliente ante un conflicto de concurrencia.
const retryAfterSeconds = "1"

// InventoryHandler maneja las peticiones HTTP de movimientos y consultas de stock (protegido).
type InventoryHandler struct {
	engine   *inventory.RecordMovementUseCase
	query    *inventory.StockQueryUseCase
	lowStock *inventory.LowStockUseCase
	report   *inventory.ValuationReportUseCase
	log      *logger.Logger
}

// NewInventoryHandler construye el handler. report puede ser nil (sin PDF).
func NewInventoryHandler(
	engine *inventory.RecordMovementUseCase,
	query *inventory.StockQueryUseCase,
	lowStock *inventory.LowStockUseCase,
	report *inventory.ValuationReportUseCase,
	log *logger.Logger,
) *InventoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryHandler{
		engine:   engine,
		query:    query,
		lowStock: lowStock,
		report:   report,
		log:      log.Named("http-inventory"),
	}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  RECEIPT, SHIPMENT, ADJUSTMENT o TRANSFER. Atómico: o se aplican todos los cambios o ninguno.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     false  "clave para reintentos seguros"
// @Param        body             body    dto.RecordMovementRequest  true   "movimiento"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	in.Direction = strings.ToUpper(strings.TrimSpace(in.Direction))
	if fields := validateStruct(in); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: fields})
	}

	// c.Get apunta al buffer de fasthttp, que se reutiliza entre requests; la clave se guarda.
	key := utils.CopyString(c.Get("Idempotency-Key"))
	out, err := h.engine.RecordMovementFromRequest(c.Context(), userID, key, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetProductStock godoc
// @Summary      Stock de un producto
// @Description  Desglose por ubicación, total, estado de alerta y valor.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "product id"
// @Success      200  {object}  dto.ProductStockSummaryDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/stock [get]
func (h *InventoryHandler) GetProductStock(c *fiber.Ctx) error {
	summary, err := h.query.GetProductSummary(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(summary)
}

// GetQuantity godoc
// @Summary      Cantidad de un producto en una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id          path  string  true  "product id"
// @Param        locationId  path  string  true  "location id"
// @Success      200  {object}  dto.QuantityResponse
// @Router       /api/inventory/products/{id}/stock/{locationId} [get]
func (h *InventoryHandler) GetQuantity(c *fiber.Ctx) error {
	productID, locationID := c.Params("id"), c.Params("locationId")
	qty, err := h.query.GetQuantity(c.Context(), productID, locationID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.QuantityResponse{ProductID: productID, LocationID: locationID, Quantity: qty})
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Description  Del más reciente al más antiguo. from/to en RFC3339.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  false  "producto"
// @Param        location_id  query  string  false  "origen o destino"
// @Param        from         query  string  false  "desde (RFC3339)"
// @Param        to           query  string  false  "hasta (RFC3339)"
// @Param        limit        query  int     false  "máximo 500"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var q dto.ListMovementsQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos"})
	}
	if fields := validateStruct(q); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos", Details: fields})
	}
	filter := repository.MovementFilter{
		ProductID:  q.ProductID,
		LocationID: q.LocationID,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	var err error
	if filter.From, err = parseTime(q.From); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	if filter.To, err = parseTime(q.To); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}

	list, err := h.query.ListMovements(c.Context(), filter)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

// ListLowStock godoc
// @Summary      Productos en o bajo su umbral
// @Description  Ordenados por urgencia: agotados primero, luego mayor déficit.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "filtrar por ubicación. Vacío = stock global."
// @Success      200  {array}   dto.LowStockItemDTO
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	list, err := h.lowStock.ListLowStock(c.Context(), c.Query("location_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total": len(list),
		"items": list,
	})
}

// Reconcile godoc
// @Summary      Auditoría de stock
// @Description  Reconstruye el stock desde el historial y reporta diferencias por ubicación.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "product id"
// @Success      200  {object}  dto.ReconciliationDTO
// @Router       /api/inventory/products/{id}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	rec, err := h.query.Reconcile(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(rec)
}

// ValuationPDF godoc
// @Summary      Reporte de valorización en PDF
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Param        product_id  query  string  true  "uno o más ids (repetido o separado por comas)"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reports/valuation.pdf [get]
func (h *InventoryHandler) ValuationPDF(c *fiber.Ctx) error {
	if h.report == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "reporte no disponible"})
	}
	var ids []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("product_id") {
		for _, id := range strings.Split(string(raw), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	pdf, err := h.report.GeneratePDF(c.Context(), ids)
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="valorizacion.pdf"`)
	return c.Send(pdf)
}

// writeError traduce errores de dominio a respuestas HTTP.
func (h *InventoryHandler) writeError(c *fiber.Ctx, err error) error {
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: "stock insuficiente",
			Details: map[string]any{
				"product_id":  stockErr.ProductID,
				"location_id": stockErr.LocationID,
				"requested":   stockErr.Requested,
				"available":   stockErr.Available,
			},
		})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: domain.ErrInvalidQuantity.Error()})
	case errors.Is(err, domain.ErrInvalidTransfer):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_TRANSFER", Message: domain.ErrInvalidTransfer.Error()})
	case errors.Is(err, domain.ErrUnknownReference):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_REFERENCE", Message: err.Error()})
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_KEY_REUSED", Message: domain.ErrIdempotencyKeyReused.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: domain.ErrConcurrencyConflict.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación excedió el tiempo máximo"})
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
