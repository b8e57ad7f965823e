package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
	pkgch "CellScope/pkg/clickhouse"
	applogger "CellScope/pkg/logger"
)

// Table DDL, idempotent. Cycle rows key on (experiment, cell, cycle);
// re-delivered cycles collapse in the ReplacingMergeTree.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cellscope.cycles (
        experiment_id               String,
        cell_id                     String,
        cycle_number                UInt32,
        charge_capacity             Nullable(Float64),
        discharge_capacity          Nullable(Float64),
        specific_charge_capacity    Nullable(Float64),
        specific_discharge_capacity Nullable(Float64),
        coulombic_efficiency        Nullable(Float64),
        ingested_at                 DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(ingested_at)
    ORDER BY (experiment_id, cell_id, cycle_number)`,
	`CREATE TABLE IF NOT EXISTS cellscope.cells (
        experiment_id           String,
        cell_id                 String,
        loading_mg              Float64,
        active_material_percent Float64,
        project_kind            String,
        formation_cycles        UInt8,
        updated_at              DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (experiment_id, cell_id)`,
}

// CHCycleStore implements CycleStore backed by ClickHouse.
type CHCycleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCycleStore(ch *pkgch.Client) *CHCycleStore {
	return &CHCycleStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCycleStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the schema if it does not exist yet.
func (s *CHCycleStore) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *CHCycleStore) Store(ctx context.Context, u *models.CycleUpdate) error {
	return s.StoreBatch(ctx, []*models.CycleUpdate{u})
}

func (s *CHCycleStore) StoreBatch(ctx context.Context, updates []*models.CycleUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(updates); start += chunkSize {
		end := start + chunkSize
		if end > len(updates) {
			end = len(updates)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, u := range updates[start:end] {
			if u == nil || u.ExperimentID == "" || u.CellID == "" || u.Record.CycleNumber <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				u.ExperimentID,
				u.CellID,
				uint32(u.Record.CycleNumber),
				nullable(u.Record.ChargeCapacity),
				nullable(u.Record.DischargeCapacity),
				nullable(u.Record.SpecificChargeCapacity),
				nullable(u.Record.SpecificDischargeCapacity),
				nullable(u.Record.CoulombicEfficiency),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO cellscope.cycles (experiment_id, cell_id, cycle_number, charge_capacity, discharge_capacity, specific_charge_capacity, specific_discharge_capacity, coulombic_efficiency) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store cycles: %w", err)
		}
	}
	return nil
}

// UpsertCell writes or refreshes the metadata row for one cell.
func (s *CHCycleStore) UpsertCell(ctx context.Context, series *models.CellSeries) error {
	const q = `INSERT INTO cellscope.cells
        (experiment_id, cell_id, loading_mg, active_material_percent, project_kind, formation_cycles)
        VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		series.ExperimentID,
		series.CellID,
		series.LoadingMg,
		series.ActiveMaterialPercent,
		string(series.ProjectKind),
		uint8(series.FormationCycleCount),
	)
	if err != nil {
		return fmt.Errorf("upsert cell: %w", err)
	}
	return nil
}

func (s *CHCycleStore) GetCellSeries(ctx context.Context, experiment, cell string) (*models.CellSeries, error) {
	start := time.Now()
	series := &models.CellSeries{
		CellID:              cell,
		ExperimentID:        experiment,
		ProjectKind:         models.DefaultProjectKind(),
		FormationCycleCount: 4,
	}

	// Metadata row is optional; unknown cells fall back to defaults.
	const metaQ = `SELECT loading_mg, active_material_percent, project_kind, formation_cycles
        FROM cellscope.cells FINAL
        WHERE experiment_id = ? AND cell_id = ?
        LIMIT 1`
	var kind string
	var formation uint8
	err := s.db.QueryRowContext(ctx, metaQ, experiment, cell).
		Scan(&series.LoadingMg, &series.ActiveMaterialPercent, &kind, &formation)
	switch {
	case err == nil:
		series.ProjectKind = models.NormalizeProjectKind(kind)
		series.FormationCycleCount = int(formation)
	case err == sql.ErrNoRows:
		// keep defaults
	default:
		return nil, fmt.Errorf("get cell metadata: %w", err)
	}

	const q = `SELECT cycle_number, charge_capacity, discharge_capacity,
            specific_charge_capacity, specific_discharge_capacity, coulombic_efficiency
        FROM cellscope.cycles FINAL
        WHERE experiment_id = ? AND cell_id = ?
        ORDER BY cycle_number ASC`
	rows, err := s.db.QueryContext(ctx, q, experiment, cell)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_cell_series query error",
				applogger.String("experiment", experiment),
				applogger.String("cell", cell),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get cell series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cycle uint32
		var chg, dis, schg, sdis, eff sql.NullFloat64
		if err := rows.Scan(&cycle, &chg, &dis, &schg, &sdis, &eff); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		series.Records = append(series.Records, models.CycleRecord{
			CycleNumber:               int(cycle),
			ChargeCapacity:            fromNull(chg),
			DischargeCapacity:         fromNull(dis),
			SpecificChargeCapacity:    fromNull(schg),
			SpecificDischargeCapacity: fromNull(sdis),
			CoulombicEfficiency:       fromNull(eff),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse get_cell_series ok",
			applogger.String("experiment", experiment),
			applogger.String("cell", cell),
			applogger.Int("cycles", len(series.Records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return series, nil
}

func (s *CHCycleStore) ListCells(ctx context.Context, experiment string) ([]string, error) {
	const q = `SELECT DISTINCT cell_id FROM cellscope.cycles WHERE experiment_id = ? ORDER BY cell_id`
	rows, err := s.db.QueryContext(ctx, q, experiment)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	defer rows.Close()

	var cells []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan cell id: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (s *CHCycleStore) GetFirstDischarges(ctx context.Context, experiment string) (map[string]float64, error) {
	// First valid specific discharge per cell, by cycle order.
	const q = `SELECT cell_id, argMin(specific_discharge_capacity, cycle_number)
        FROM cellscope.cycles
        WHERE experiment_id = ? AND specific_discharge_capacity IS NOT NULL
        GROUP BY cell_id`
	rows, err := s.db.QueryContext(ctx, q, experiment)
	if err != nil {
		return nil, fmt.Errorf("get first discharges: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var cell string
		var v float64
		if err := rows.Scan(&cell, &v); err != nil {
			return nil, fmt.Errorf("scan first discharge: %w", err)
		}
		out[cell] = v
	}
	return out, rows.Err()
}

func (s *CHCycleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCycleStore) Close() error {
	return nil // pool owned by pkg client
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ domrepo.CycleStore = (*CHCycleStore)(nil)
