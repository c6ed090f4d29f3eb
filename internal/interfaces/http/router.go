package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine    *inventory.RecordMovementUseCase
	Query     *inventory.StockQueryUseCase
	LowStock  *inventory.LowStockUseCase
	Valuation *inventory.ValuationReportUseCase
	JWTSecret string
	Log       *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	invGroup := protected.Group("/inventory")
	h := NewInventoryHandler(deps.Engine, deps.Query, deps.LowStock, deps.Valuation, deps.Log)

	// Escrituras: solo admin y bodeguero
	invGroup.Post("/movements", RequireRole(MovementWriterRoles...), h.RecordMovement)

	invGroup.Get("/movements", h.ListMovements)
	invGroup.Get("/products/:id/stock", h.GetProductStock)
	invGroup.Get("/products/:id/stock/:locationId", h.GetQuantity)
	invGroup.Get("/low-stock", h.ListLowStock)
	invGroup.Get("/reports/valuation.pdf", h.ValuationPDF)

	// Auditoría
	invGroup.Get("/products/:id/reconcile", RequireRole(AuditorRoles...), h.Reconcile)
}
