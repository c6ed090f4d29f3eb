package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, idempotency_key, type, product_id, quantity, from_location_id, to_location_id, reason, actor_id, created_at`

// MovementRepo historial de movimientos sobre PostgreSQL (solo INSERT; un trigger rechaza UPDATE/DELETE).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create agrega un movimiento. Una idempotency_key repetida devuelve domain.ErrDuplicate.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, nullable(m.IdempotencyKey), string(m.Type), m.ProductID, m.Quantity,
		m.FromLocationID, m.ToLocationID, nullable(m.Reason), m.ActorID, m.CreatedAt,
	)
	if err != nil {
		return classifyPgError("create movement", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyPgError("get movement", err)
	}
	return m, nil
}

// GetByIdempotencyKey devuelve nil, nil si la clave no se ha usado.
func (r *MovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE idempotency_key = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyPgError("get movement by idempotency key", err)
	}
	return m, nil
}

// List historial filtrado, del más reciente al más antiguo. Limit 0 = sin límite.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	where, args := movementWhere(f)
	pos := len(args) + 1

	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where
	query += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError("list movements", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Count total de movimientos que cumplen el filtro (para la paginación).
func (r *MovementRepo) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	where, args := movementWhere(f)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&total); err != nil {
		return 0, classifyPgError("count movements", err)
	}
	return total, nil
}

// movementWhere arma el WHERE del filtro con parámetros posicionales desde $1.
func movementWhere(f repository.MovementFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.ProductID != "" {
		add("product_id = ?", f.ProductID)
	}
	if f.LocationID != "" {
		add("(from_location_id = ? OR to_location_id = ?)", f.LocationID)
	}
	if f.From != nil {
		add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		add("created_at <= ?", *f.To)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m      entity.Movement
		key    *string
		reason *string
		typ    string
	)
	if err := row.Scan(&m.ID, &key, &typ, &m.ProductID, &m.Quantity,
		&m.FromLocationID, &m.ToLocationID, &reason, &m.ActorID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	if key != nil {
		m.IdempotencyKey = *key
	}
	if reason != nil {
		m.Reason = *reason
	}
	return &m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
