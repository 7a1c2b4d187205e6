package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// MySQL error numbers the engine cares about.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// MySQLStore implements port.Store on InnoDB. Row locks come from
// SELECT ... FOR UPDATE inside the transaction opened by RunInTx; lock wait
// timeouts and deadlocks surface as the transient domain.ErrLockTimeout so
// callers can retry the whole transition.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) RunInTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return mapMySQLErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapMySQLErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mapMySQLErr rewraps transient engine failures as domain.ErrLockTimeout.
func mapMySQLErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrLockWaitTimeout || me.Number == mysqlErrDeadlock) {
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

func (s *MySQLStore) GetProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error) {
	return queryOrder(ctx, s.db, id, false)
}

func (s *MySQLStore) GetShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	return queryShipment(ctx, s.db, id, false)
}

func (s *MySQLStore) GetInventoryByOwner(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error) {
	return queryInventory(ctx, s.db, owner, false)
}

func (s *MySQLStore) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_type, severity, subject_type, subject_id, message, created_at
		FROM alerts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.SubjectType, &a.SubjectID, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *MySQLStore) ListOrdersDueToStart(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error) {
	return s.listOrders(ctx, `status = ? AND start_date = ?`, domain.OrderPlanned, day.Format("2006-01-02"))
}

func (s *MySQLStore) ListOrdersDueToComplete(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error) {
	return s.listOrders(ctx, `status = ? AND planned_completion_date = ?`, domain.OrderInProgress, day.Format("2006-01-02"))
}

func (s *MySQLStore) listOrders(ctx context.Context, where string, args ...any) ([]domain.ProductionOrder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM production_orders WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.ProductionOrder, 0, len(ids))
	for _, id := range ids {
		o, err := queryOrder(ctx, s.db, id, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *MySQLStore) ListShipmentsDueToDepart(ctx context.Context, day time.Time) ([]domain.Shipment, error) {
	return s.listShipments(ctx, `status = ? AND departure_date = ?`, domain.ShipmentPlanned, day.Format("2006-01-02"))
}

func (s *MySQLStore) ListShipmentsOverdue(ctx context.Context, day time.Time) ([]domain.Shipment, error) {
	return s.listShipments(ctx, `status = ? AND estimate_arrival_date = ?`, domain.ShipmentInTransit, day.Format("2006-01-02"))
}

func (s *MySQLStore) listShipments(ctx context.Context, where string, args ...any) ([]domain.Shipment, error) {
	rows, err := s.db.QueryContext(ctx, selectShipment+` WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []domain.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func (s *MySQLStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	return s.RunInTx(ctx, func(tx port.Tx) error {
		mt := tx.(*mysqlTx)
		now := time.Now()
		res, err := mt.tx.ExecContext(ctx, `
			INSERT INTO products (name, sku, unit, production_duration_minutes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.Name, p.SKU, p.Unit, p.ProductionDurationMinutes, now, now)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		p.ID, _ = res.LastInsertId()
		p.CreatedAt, p.UpdatedAt = now, now
		return mt.insertInventoryRow(ctx, domain.ProductRef(p.ID))
	})
}

func (s *MySQLStore) CreateRawMaterial(ctx context.Context, rm *domain.RawMaterial) error {
	return s.RunInTx(ctx, func(tx port.Tx) error {
		mt := tx.(*mysqlTx)
		now := time.Now()
		res, err := mt.tx.ExecContext(ctx, `
			INSERT INTO raw_materials (name, unit, created_at, updated_at)
			VALUES (?, ?, ?, ?)`,
			rm.Name, rm.Unit, now, now)
		if err != nil {
			return fmt.Errorf("insert raw material: %w", err)
		}
		rm.ID, _ = res.LastInsertId()
		rm.CreatedAt, rm.UpdatedAt = now, now
		return mt.insertInventoryRow(ctx, domain.RawMaterialRef(rm.ID))
	})
}

func (s *MySQLStore) CreateSupplier(ctx context.Context, sup *domain.Supplier) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO suppliers (name, email) VALUES (?, ?)`, sup.Name, sup.Email)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	sup.ID, _ = res.LastInsertId()
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

// insertInventoryRow creates the one inventory row that lives with the
// owning item. The unique key on (owner_type, owner_id) rejects a second.
func (t *mysqlTx) insertInventoryRow(ctx context.Context, owner domain.OwnerRef) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory (owner_type, owner_id, quantity, reorder_threshold, last_updated)
		VALUES (?, ?, 0, 0, ?)`,
		owner.Type, owner.ID, time.Now())
	if err != nil {
		return fmt.Errorf("insert inventory row: %w", err)
	}
	return nil
}

func (t *mysqlTx) LockInventory(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error) {
	return queryInventory(ctx, t.tx, owner, true)
}

func (t *mysqlTx) SaveInventory(ctx context.Context, rec *domain.InventoryRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE inventory SET quantity = ?, reorder_threshold = ?, last_updated = ?
		WHERE id = ?`,
		rec.Quantity, rec.ReorderThreshold, rec.LastUpdated, rec.ID)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (t *mysqlTx) LockProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error) {
	return queryOrder(ctx, t.tx, id, true)
}

func (t *mysqlTx) InsertProductionOrder(ctx context.Context, o *domain.ProductionOrder) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO production_orders
			(reference, status, creation_date, start_date, planned_completion_date, completed_date,
			 output_product_id, output_quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Reference, o.Status, o.CreationDate, nullDate(o.StartDate), nullDate(o.PlannedCompletionDate),
		nullDate(o.CompletedDate), o.Output.ProductID, o.Output.Quantity)
	if err != nil {
		return fmt.Errorf("insert production order: %w", err)
	}
	o.ID, _ = res.LastInsertId()

	for _, m := range o.Materials {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO production_order_materials (order_id, raw_material_id, quantity)
			VALUES (?, ?, ?)`,
			o.ID, m.RawMaterialID, m.Quantity); err != nil {
			return fmt.Errorf("insert material line: %w", err)
		}
	}
	return nil
}

func (t *mysqlTx) UpdateProductionOrder(ctx context.Context, o *domain.ProductionOrder) error {
	// Material lines are immutable once the order leaves PLANNED; only the
	// header changes after creation.
	_, err := t.tx.ExecContext(ctx, `
		UPDATE production_orders
		SET status = ?, start_date = ?, planned_completion_date = ?, completed_date = ?
		WHERE id = ?`,
		o.Status, nullDate(o.StartDate), nullDate(o.PlannedCompletionDate), nullDate(o.CompletedDate), o.ID)
	if err != nil {
		return fmt.Errorf("update production order: %w", err)
	}
	return nil
}

func (t *mysqlTx) LockShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	return queryShipment(ctx, t.tx, id, true)
}

func (t *mysqlTx) InsertShipment(ctx context.Context, sh *domain.Shipment) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO shipments
			(reference_code, direction, status, transport_mode, quantity,
			 product_id, raw_material_id, supplier_id, customer_name, tracking_number,
			 departure_date, estimate_arrival_date, actual_arrival_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ReferenceCode, sh.Direction, sh.Status, sh.TransportMode, sh.Quantity,
		sh.ProductID, sh.RawMaterialID, sh.SupplierID, sh.CustomerName, sh.TrackingNumber,
		sh.DepartureDate, nullDate(sh.EstimateArrivalDate), nullDate(sh.ActualArrivalDate),
		sh.CreatedAt, sh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	sh.ID, _ = res.LastInsertId()
	return nil
}

func (t *mysqlTx) UpdateShipment(ctx context.Context, sh *domain.Shipment) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE shipments
		SET status = ?, departure_date = ?, estimate_arrival_date = ?, actual_arrival_date = ?, updated_at = ?
		WHERE id = ?`,
		sh.Status, sh.DepartureDate, nullDate(sh.EstimateArrivalDate), nullDate(sh.ActualArrivalDate),
		sh.UpdatedAt, sh.ID)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	return nil
}

func (t *mysqlTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, sku, unit, production_duration_minutes, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Unit, &p.ProductionDurationMinutes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (t *mysqlTx) GetRawMaterial(ctx context.Context, id int64) (*domain.RawMaterial, error) {
	var rm domain.RawMaterial
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, unit, created_at, updated_at
		FROM raw_materials WHERE id = ?`, id,
	).Scan(&rm.ID, &rm.Name, &rm.Unit, &rm.CreatedAt, &rm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: raw material %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query raw material: %w", err)
	}
	return &rm, nil
}

func (t *mysqlTx) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := t.tx.QueryRowContext(ctx, `SELECT id, name, email FROM suppliers WHERE id = ?`, id,
	).Scan(&sup.ID, &sup.Name, &sup.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: supplier %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query supplier: %w", err)
	}
	return &sup, nil
}

// InsertAlertIfAbsent relies on the unique key over (alert_type,
// subject_type, subject_id): a concurrent duplicate insert loses with error
// 1062 and reads the surviving row instead.
func (t *mysqlTx) InsertAlertIfAbsent(ctx context.Context, a *domain.Alert) (bool, error) {
	if found, err := t.findAlert(ctx, a); err != nil || found {
		return false, err
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO alerts (alert_type, severity, subject_type, subject_id, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Type, a.Severity, a.SubjectType, a.SubjectID, a.Message, a.CreatedAt)
	if isDuplicate(err) {
		if _, ferr := t.findAlert(ctx, a); ferr != nil {
			return false, ferr
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return true, nil
}

func (t *mysqlTx) findAlert(ctx context.Context, a *domain.Alert) (bool, error) {
	var existing domain.Alert
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, alert_type, severity, subject_type, subject_id, message, created_at
		FROM alerts WHERE alert_type = ? AND subject_type = ? AND subject_id = ?`,
		a.Type, a.SubjectType, a.SubjectID,
	).Scan(&existing.ID, &existing.Type, &existing.Severity, &existing.SubjectType,
		&existing.SubjectID, &existing.Message, &existing.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query alert: %w", err)
	}
	*a = existing
	return true, nil
}

func (t *mysqlTx) DeleteAlert(ctx context.Context, typ domain.AlertType, st domain.SubjectType, subjectID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM alerts WHERE alert_type = ? AND subject_type = ? AND subject_id = ?`,
		typ, st, subjectID)
	if err != nil {
		return 0, fmt.Errorf("delete alert: %w", err)
	}
	return res.RowsAffected()
}

func (t *mysqlTx) PurgeAlerts(ctx context.Context, typ domain.AlertType, before time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM alerts WHERE alert_type = ? AND created_at < ?`, typ, before)
	if err != nil {
		return 0, fmt.Errorf("purge alerts: %w", err)
	}
	return res.RowsAffected()
}

// querier lets the row readers run on *sql.DB and *sql.Tx alike.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInventory(ctx context.Context, q querier, owner domain.OwnerRef, forUpdate bool) (*domain.InventoryRecord, error) {
	query := `
		SELECT id, owner_type, owner_id, quantity, reorder_threshold, last_updated
		FROM inventory WHERE owner_type = ? AND owner_id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var rec domain.InventoryRecord
	err := q.QueryRowContext(ctx, query, owner.Type, owner.ID).Scan(
		&rec.ID, &rec.Owner.Type, &rec.Owner.ID, &rec.Quantity, &rec.ReorderThreshold, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: inventory for %s %d", domain.ErrNotFound, owner.Type, owner.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", mapMySQLErr(err))
	}
	return &rec, nil
}

func queryOrder(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.ProductionOrder, error) {
	query := `
		SELECT id, reference, status, creation_date, start_date, planned_completion_date, completed_date,
		       output_product_id, output_quantity
		FROM production_orders WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		o                     domain.ProductionOrder
		startDate, plannedEnd sql.NullTime
		completed             sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Reference, &o.Status, &o.CreationDate, &startDate, &plannedEnd, &completed,
		&o.Output.ProductID, &o.Output.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: production order %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query production order: %w", mapMySQLErr(err))
	}
	o.StartDate = timePtr(startDate)
	o.PlannedCompletionDate = timePtr(plannedEnd)
	o.CompletedDate = timePtr(completed)

	rows, err := q.QueryContext(ctx, `
		SELECT raw_material_id, quantity FROM production_order_materials
		WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query material lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.MaterialLine
		if err := rows.Scan(&m.RawMaterialID, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scan material line: %w", err)
		}
		o.Materials = append(o.Materials, m)
	}
	return &o, rows.Err()
}

const selectShipment = `
	SELECT id, reference_code, direction, status, transport_mode, quantity,
	       product_id, raw_material_id, supplier_id, customer_name, tracking_number,
	       departure_date, estimate_arrival_date, actual_arrival_date, created_at, updated_at
	FROM shipments`

func queryShipment(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Shipment, error) {
	query := selectShipment + ` WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	row := q.QueryRowContext(ctx, query, id)
	sh, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: shipment %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query shipment: %w", mapMySQLErr(err))
	}
	return sh, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var (
		sh                 domain.Shipment
		productID          sql.NullInt64
		rawMaterialID      sql.NullInt64
		supplierID         sql.NullInt64
		estimate, actual   sql.NullTime
		customer, tracking sql.NullString
	)
	err := row.Scan(
		&sh.ID, &sh.ReferenceCode, &sh.Direction, &sh.Status, &sh.TransportMode, &sh.Quantity,
		&productID, &rawMaterialID, &supplierID, &customer, &tracking,
		&sh.DepartureDate, &estimate, &actual, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sh.ProductID = int64Ptr(productID)
	sh.RawMaterialID = int64Ptr(rawMaterialID)
	sh.SupplierID = int64Ptr(supplierID)
	sh.CustomerName = customer.String
	sh.TrackingNumber = tracking.String
	sh.EstimateArrivalDate = timePtr(estimate)
	sh.ActualArrivalDate = timePtr(actual)
	return &sh, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
