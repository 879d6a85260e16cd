package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carreg/internal/registration/models"
	"carreg/pkg/platform/sentinel"
	txcontext "carreg/pkg/platform/tx"
)

// PostgresStore persists vehicles in PostgreSQL. A record update and its
// history row are written in one SQL transaction.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const vehicleColumns = `id, vin, company_id, customer_id, car_pool, car_pool_number, registration_id,
	erp_registration_number, erp_delivery_number, delivery_date, registration_date,
	email_addresses, customer_registration_reference, error_notification_sent,
	error_code, error_message, remote_transaction_id, transaction_id,
	transaction_state, transaction_type, transaction_start_date, transaction_end_date, source`

const historyColumns = `id, vehicle_id, vin, registration_id, company_id, customer_id, car_pool,
	car_pool_number, erp_registration_number, email_addresses,
	customer_registration_reference, error_notification_sent, transaction_id,
	actor, state, type, created_at`

func (s *PostgresStore) GetRecords(ctx context.Context, vins []string) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vin = ANY($1) ORDER BY id`
	rows, err := s.querier(ctx).QueryContext(ctx, query, pq.Array(vins))
	if err != nil {
		return nil, fmt.Errorf("get vehicles: %w", err)
	}
	return scanVehicles(rows)
}

func (s *PostgresStore) GetRecordByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	v, err := scanVehicle(s.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle by id: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) GetRecordsByRegistrationID(ctx context.Context, registrationID string) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE registration_id = $1 ORDER BY id`
	rows, err := s.querier(ctx).QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get vehicles by registration id: %w", err)
	}
	return scanVehicles(rows)
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, v *models.Vehicle, actor string, withHistory bool) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		query := `
			UPDATE vehicles SET
				company_id = $2, customer_id = $3, car_pool = $4, car_pool_number = $5,
				registration_id = $6, erp_registration_number = $7, erp_delivery_number = $8,
				delivery_date = $9, registration_date = $10, email_addresses = $11,
				customer_registration_reference = $12, error_notification_sent = $13,
				error_code = $14, error_message = $15, remote_transaction_id = $16,
				transaction_id = $17, transaction_state = $18, transaction_type = $19,
				transaction_start_date = $20, transaction_end_date = $21, source = $22
			WHERE vin = $1
			RETURNING id`
		var id int64
		err := s.querier(ctx).QueryRowContext(ctx, query,
			v.VIN, v.CompanyID, v.CustomerID, v.CarPool, v.CarPoolNumber,
			v.RegistrationID, v.ErpRegistrationNumber, v.ErpDeliveryNumber,
			nullTime(v.DeliveryDate), nullTime(v.RegistrationDate), v.EmailAddresses,
			v.CustomerRegistrationReference, v.ErrorNotificationSent,
			v.ErrorCode, v.ErrorMessage, v.RemoteTransactionID,
			v.TransactionID, nullState(v.TransactionState), nullType(v.TransactionType),
			nullTime(v.TransactionStartDate), nullTime(v.TransactionEndDate), v.Source,
		).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("update vehicle: %w", err)
		}
		if v.ID != 0 && v.ID != id {
			return sentinel.ErrNotFound
		}
		if !withHistory {
			return nil
		}
		snapshot := v.Clone()
		snapshot.ID = id
		return s.insertHistory(ctx, snapshot, actor, "", "")
	})
}

// SaveRegistrations upserts vehicles by VIN. Cars in MissingData are stored
// but not reported as saved; a stale MissingData state is cleared once the
// car arrives complete.
func (s *PostgresStore) SaveRegistrations(ctx context.Context, vehicles []*models.Vehicle, actor string, forced bool) (models.SaveResult, error) {
	var result models.SaveResult
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		if !forced {
			registered, err := s.allRegistered(ctx, vehicles)
			if err != nil {
				return err
			}
			if registered {
				result.AlreadyRegistered = true
				return nil
			}
		}

		query := `
			INSERT INTO vehicles (
				vin, company_id, customer_id, car_pool, car_pool_number, registration_id,
				erp_registration_number, erp_delivery_number, delivery_date, registration_date,
				email_addresses, customer_registration_reference, transaction_state, source
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (vin) DO UPDATE SET
				company_id = EXCLUDED.company_id,
				customer_id = EXCLUDED.customer_id,
				car_pool = EXCLUDED.car_pool,
				car_pool_number = EXCLUDED.car_pool_number,
				registration_id = EXCLUDED.registration_id,
				erp_registration_number = EXCLUDED.erp_registration_number,
				erp_delivery_number = EXCLUDED.erp_delivery_number,
				delivery_date = COALESCE(EXCLUDED.delivery_date, vehicles.delivery_date),
				registration_date = COALESCE(EXCLUDED.registration_date, vehicles.registration_date),
				email_addresses = EXCLUDED.email_addresses,
				customer_registration_reference = EXCLUDED.customer_registration_reference,
				transaction_state = CASE
					WHEN EXCLUDED.transaction_state = $15 THEN EXCLUDED.transaction_state
					WHEN vehicles.transaction_state = $15 THEN NULL
					ELSE vehicles.transaction_state
				END,
				source = CASE WHEN EXCLUDED.source = '' THEN vehicles.source ELSE EXCLUDED.source END
			RETURNING id, transaction_state, transaction_id, transaction_type`
		result.Saved = make([]string, 0, len(vehicles))
		for _, v := range vehicles {
			var (
				id      int64
				state   sql.NullInt32
				txID    string
				regType sql.NullInt32
			)
			err := s.querier(ctx).QueryRowContext(ctx, query,
				v.VIN, v.CompanyID, v.CustomerID, v.CarPool, v.CarPoolNumber, v.RegistrationID,
				v.ErpRegistrationNumber, v.ErpDeliveryNumber, nullTime(v.DeliveryDate), nullTime(v.RegistrationDate),
				v.EmailAddresses, v.CustomerRegistrationReference, nullState(v.TransactionState), v.Source,
				int32(models.StateMissingData),
			).Scan(&id, &state, &txID, &regType)
			if err != nil {
				return fmt.Errorf("save vehicle %s: %w", v.VIN, err)
			}

			snapshot := v.Clone()
			snapshot.ID = id
			snapshot.TransactionState = stateFrom(state)
			snapshot.TransactionID = txID
			snapshot.TransactionType = typeFrom(regType)
			if err := s.insertHistory(ctx, snapshot, actor, "", ""); err != nil {
				return err
			}
			if snapshot.TransactionState != models.StateMissingData {
				result.Saved = append(result.Saved, v.VIN)
			}
		}
		return nil
	})
	if err != nil {
		return models.SaveResult{}, err
	}
	return result, nil
}

func (s *PostgresStore) allRegistered(ctx context.Context, vehicles []*models.Vehicle) (bool, error) {
	if len(vehicles) == 0 {
		return false, nil
	}
	vins := make([]string, 0, len(vehicles))
	companies := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		vins = append(vins, v.VIN)
		companies[v.VIN] = v.CompanyID
	}

	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT vin, company_id FROM vehicles WHERE vin = ANY($1) AND transaction_state = $2`,
		pq.Array(vins), int32(models.StateRegistered))
	if err != nil {
		return false, fmt.Errorf("check registered vehicles: %w", err)
	}
	defer rows.Close()

	matched := 0
	for rows.Next() {
		var vin, companyID string
		if err := rows.Scan(&vin, &companyID); err != nil {
			return false, fmt.Errorf("scan registered vehicle: %w", err)
		}
		if companies[vin] == companyID {
			matched++
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate registered vehicles: %w", err)
	}
	return matched == len(companies), nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, v *models.Vehicle, actor, stateLabel, typeLabel string) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		snapshot := v.Clone()
		if snapshot.ID == 0 {
			err := s.querier(ctx).QueryRowContext(ctx, `SELECT id FROM vehicles WHERE vin = $1`, v.VIN).Scan(&snapshot.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return sentinel.ErrNotFound
				}
				return fmt.Errorf("resolve vehicle id: %w", err)
			}
		}
		return s.insertHistory(ctx, snapshot, actor, stateLabel, typeLabel)
	})
}

// insertHistory stamps the entry strictly after the newest one for the VIN
// so that a timestamp identifies exactly one snapshot.
func (s *PostgresStore) insertHistory(ctx context.Context, v *models.Vehicle, actor, stateLabel, typeLabel string) error {
	entry := models.NewHistoryEntry(v, actor, stateLabel, typeLabel, s.now().UTC().Truncate(time.Microsecond))
	query := `
		INSERT INTO vehicle_history (
			vehicle_id, vin, registration_id, company_id, customer_id, car_pool, car_pool_number,
			erp_registration_number, email_addresses, customer_registration_reference,
			error_notification_sent, transaction_id, actor, state, type, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			GREATEST($16::timestamptz, COALESCE(
				(SELECT max(created_at) + interval '1 microsecond' FROM vehicle_history WHERE vin = $2),
				$16::timestamptz))
		)
		RETURNING id`
	var id int64
	err := s.querier(ctx).QueryRowContext(ctx, query,
		entry.VehicleID, entry.VIN, entry.RegistrationID, entry.CompanyID, entry.CustomerID,
		entry.CarPool, entry.CarPoolNumber, entry.ErpRegistrationNumber, entry.EmailAddresses,
		entry.CustomerRegistrationReference, entry.ErrorNotificationSent, entry.TransactionID,
		entry.Actor, entry.StateLabel, entry.TypeLabel, entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert vehicle history: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, vin string) ([]models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM vehicle_history WHERE vin = $1 ORDER BY created_at, id`
	rows, err := s.querier(ctx).QueryContext(ctx, query, models.NormalizeVIN(vin))
	if err != nil {
		return nil, fmt.Errorf("get vehicle history: %w", err)
	}
	defer rows.Close()

	history := []models.HistoryEntry{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicle history: %w", err)
	}
	return history, nil
}

func (s *PostgresStore) GetLatestHistoryEntry(ctx context.Context, vin string) (*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM vehicle_history WHERE vin = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	h, err := scanHistory(s.querier(ctx).QueryRowContext(ctx, query, models.NormalizeVIN(vin)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get latest vehicle history: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) GetHistoryEntry(ctx context.Context, vin string, createdAt time.Time) (*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM vehicle_history WHERE vin = $1 AND created_at = $2`
	h, err := scanHistory(s.querier(ctx).QueryRowContext(ctx, query, models.NormalizeVIN(vin), createdAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle history entry: %w", err)
	}
	return h, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicles(rows *sql.Rows) ([]*models.Vehicle, error) {
	defer rows.Close()
	out := []*models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return out, nil
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var (
		v                                             models.Vehicle
		deliveryDate, registrationDate, start, finish sql.NullTime
		state, regType                                sql.NullInt32
	)
	err := row.Scan(
		&v.ID, &v.VIN, &v.CompanyID, &v.CustomerID, &v.CarPool, &v.CarPoolNumber, &v.RegistrationID,
		&v.ErpRegistrationNumber, &v.ErpDeliveryNumber, &deliveryDate, &registrationDate,
		&v.EmailAddresses, &v.CustomerRegistrationReference, &v.ErrorNotificationSent,
		&v.ErrorCode, &v.ErrorMessage, &v.RemoteTransactionID, &v.TransactionID,
		&state, &regType, &start, &finish, &v.Source,
	)
	if err != nil {
		return nil, err
	}
	v.DeliveryDate = timeFrom(deliveryDate)
	v.RegistrationDate = timeFrom(registrationDate)
	v.TransactionStartDate = timeFrom(start)
	v.TransactionEndDate = timeFrom(finish)
	v.TransactionState = stateFrom(state)
	v.TransactionType = typeFrom(regType)
	return &v, nil
}

func scanHistory(row rowScanner) (*models.HistoryEntry, error) {
	var h models.HistoryEntry
	err := row.Scan(
		&h.ID, &h.VehicleID, &h.VIN, &h.RegistrationID, &h.CompanyID, &h.CustomerID, &h.CarPool,
		&h.CarPoolNumber, &h.ErpRegistrationNumber, &h.EmailAddresses,
		&h.CustomerRegistrationReference, &h.ErrorNotificationSent, &h.TransactionID,
		&h.Actor, &h.StateLabel, &h.TypeLabel, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeFrom(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullState stores StateNone as NULL.
func nullState(s models.TransactionState) sql.NullInt32 {
	if !s.IsSet() {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(s), Valid: true}
}

func stateFrom(v sql.NullInt32) models.TransactionState {
	if !v.Valid {
		return models.StateNone
	}
	return models.TransactionState(v.Int32)
}

func nullType(t models.TransactionType) sql.NullInt32 {
	if t == 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(t), Valid: true}
}

func typeFrom(v sql.NullInt32) models.TransactionType {
	if !v.Valid {
		return 0
	}
	return models.TransactionType(v.Int32)
}
