package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/normalization"
)

// ViewNames is the stable creation order for the analytics view chain.
// Later views select from earlier ones, so both the drop pass and the
// create pass walk this slice in order. Dashboards address these names
// directly; renaming a view or a projected column breaks them.
var ViewNames = []string{
	"analytics.vw_point_enriched",
	"analytics.vw_serve_fact",
	"analytics.vw_match_summary",
	"analytics.vw_player_day_summary",
	"analytics.vw_serve_time_trend",
	"analytics.vw_serve_loc_distribution",
}

// IndexStmts are helpful base-table indexes, all idempotent.
var IndexStmts = []string{
	`CREATE INDEX IF NOT EXISTS point_event_task_point ON bronze.point_event (task_id, point_number);`,
	`CREATE INDEX IF NOT EXISTS point_event_task_game ON bronze.point_event (task_id, game_number);`,
	`CREATE INDEX IF NOT EXISTS point_event_player ON bronze.point_event (player_id);`,
	`CREATE INDEX IF NOT EXISTS submission_context_task_created ON bronze.submission_context (task_id, created_at DESC);`,
}

type ViewService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewViewService(pg *PostgresService, log *logger.Logger) *ViewService {
	return &ViewService{db: pg.DB(), log: log.With("service", "ViewService")}
}

// Rebuild drops and recreates the whole chain inside one transaction:
// preflight, drop in order, create in order, then indexes. Views are
// cheap to recreate and this sidesteps CREATE OR REPLACE's column-set
// restrictions when a view definition changes between deploys.
func (s *ViewService) Rebuild() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := preflight(tx); err != nil {
			return err
		}
		for _, name := range ViewNames {
			if err := dropViewOrMatview(tx, name); err != nil {
				return err
			}
		}
		pointCols, err := columnSet(tx, "bronze", "point_event")
		if err != nil {
			return err
		}
		stmts := map[string]string{
			"analytics.vw_point_enriched":         PointEnrichedSQL(),
			"analytics.vw_serve_fact":             ServeFactSQL(pointCols),
			"analytics.vw_match_summary":          MatchSummarySQL(),
			"analytics.vw_player_day_summary":     PlayerDaySummarySQL(),
			"analytics.vw_serve_time_trend":       ServeTimeTrendSQL(),
			"analytics.vw_serve_loc_distribution": ServeLocDistributionSQL(),
		}
		for _, name := range ViewNames {
			if err := tx.Exec(stmts[name]).Error; err != nil {
				s.log.Error("Failed to create view", "view", name, "error", err)
				return fmt.Errorf("create %s: %w", name, err)
			}
			s.log.Info("Created view", "view", name)
		}
		for _, stmt := range IndexStmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		return nil
	})
}

// preflight fails the rebuild before any drop when the base tables or the
// columns the views project are missing. A half-rebuilt chain with views
// silently referencing dropped columns is much worse than a loud abort.
func preflight(tx *gorm.DB) error {
	requiredTables := map[string][]string{
		"point_event":        {"task_id", "point_number", "game_number", "player_id", "server_id", "serve", "serve_fault", "double_fault", "point_winner_player_id"},
		"submission_context": {"task_id", "raw_meta", "created_at"},
	}
	var missing []string
	for table, cols := range requiredTables {
		ok, err := tableExists(tx, "bronze", table)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, "bronze."+table)
			continue
		}
		have, err := columnSet(tx, "bronze", table)
		if err != nil {
			return err
		}
		for _, c := range cols {
			if !have[c] {
				missing = append(missing, "bronze."+table+"."+c)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing base tables/columns before creating views: %s", strings.Join(missing, ", "))
	}
	return nil
}

func tableExists(tx *gorm.DB, schema, table string) (bool, error) {
	var n int64
	err := tx.Raw(`
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, schema, table).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("table existence check for %s.%s: %w", schema, table, err)
	}
	return n > 0, nil
}

func columnSet(tx *gorm.DB, schema, table string) (map[string]bool, error) {
	var names []string
	err := tx.Raw(`
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
	`, schema, table).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("column discovery for %s.%s: %w", schema, table, err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// dropViewOrMatview looks up the relation kind first so a name that was
// deployed as a materialized view in an earlier revision still drops.
func dropViewOrMatview(tx *gorm.DB, qualified string) error {
	schema, name, found := strings.Cut(qualified, ".")
	if !found {
		schema, name = "public", qualified
	}
	var kind string
	err := tx.Raw(`
		SELECT c.relkind FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = ? AND c.relname = ?
		LIMIT 1
	`, schema, name).Scan(&kind).Error
	if err != nil {
		return fmt.Errorf("relkind lookup for %s: %w", qualified, err)
	}
	switch kind {
	case "v":
		err = tx.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s CASCADE;`, qualified)).Error
	case "m":
		err = tx.Exec(fmt.Sprintf(`DROP MATERIALIZED VIEW IF EXISTS %s CASCADE;`, qualified)).Error
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("drop %s: %w", qualified, err)
	}
	return nil
}

// FallbackExpr renders the ordered candidate-column fallback for a logical
// attribute as SQL over alias p, restricted to columns that actually exist
// on the source relation. No candidate present yields a typed NULL so the
// projected column set stays stable across schema revisions.
func FallbackExpr(cols map[string]bool, logical, nullType string) string {
	var present []string
	for _, cand := range normalization.FieldTable[logical] {
		if cols[cand] {
			present = append(present, "p."+cand)
		}
	}
	switch len(present) {
	case 0:
		return "NULL::" + nullType
	case 1:
		return present[0]
	default:
		return "COALESCE(" + strings.Join(present, ", ") + ")"
	}
}

// PointEnrichedSQL joins raw point events with the latest submission
// context per task. Re-uploads leave stale context rows behind; the
// ROW_NUMBER window keeps only the newest (created_at DESC NULLS LAST).
// raw_meta values are free text from a web form, so every typed
// extraction is regex-guarded before the cast.
func PointEnrichedSQL() string {
	return `
CREATE VIEW analytics.vw_point_enriched AS
WITH ctx_pre AS (
  SELECT
    sc.task_id,
    sc.created_at,
    sc.email,
    sc.customer_name,
    sc.raw_meta::jsonb AS m,
    ROW_NUMBER() OVER (
      PARTITION BY sc.task_id
      ORDER BY sc.created_at DESC NULLS LAST
    ) AS rn
  FROM bronze.submission_context sc
  WHERE sc.task_id IS NOT NULL
),
ctx AS (
  SELECT
    cp.task_id,
    cp.created_at                     AS submission_created_at,
    NULLIF(cp.email, '')              AS submission_email,
    NULLIF(cp.customer_name, '')      AS submission_customer_name,
    CASE
      WHEN COALESCE(cp.m->>'match_date', '') ~ '^[0-9]{4}[-/][0-9]{2}[-/][0-9]{2}$'
        THEN REPLACE(cp.m->>'match_date', '/', '-')::date
      ELSE NULL
    END                               AS submission_match_date,
    CASE
      WHEN COALESCE(cp.m->>'start_time', '') ~ '^[0-9]{2}:[0-9]{2}(:[0-9]{2})?$'
        THEN (cp.m->>'start_time')::time
      ELSE NULL
    END                               AS submission_start_time,
    NULLIF(cp.m->>'location', '')     AS submission_location,
    NULLIF(cp.m->>'player_a_name', '') AS submission_player_a_name,
    NULLIF(cp.m->>'player_b_name', '') AS submission_player_b_name,
    CASE WHEN (cp.m->>'player_a_utr') ~ '^[0-9]+(\.[0-9]+)?$'
         THEN (cp.m->>'player_a_utr')::numeric END AS submission_player_a_utr,
    CASE WHEN (cp.m->>'player_b_utr') ~ '^[0-9]+(\.[0-9]+)?$'
         THEN (cp.m->>'player_b_utr')::numeric END AS submission_player_b_utr,
    NULLIF(cp.m->>'s3_bucket', '')    AS submission_s3_bucket,
    NULLIF(cp.m->>'s3_key', '')       AS submission_s3_key
  FROM ctx_pre cp
  WHERE cp.rn = 1
)
SELECT
  p.*,
  c.submission_created_at,
  c.submission_email,
  c.submission_customer_name,
  c.submission_match_date,
  c.submission_start_time,
  c.submission_location,
  c.submission_player_a_name,
  c.submission_player_a_utr,
  c.submission_player_b_name,
  c.submission_player_b_utr,
  c.submission_s3_bucket,
  c.submission_s3_key
FROM bronze.point_event p
LEFT JOIN ctx c ON c.task_id = p.task_id;
`
}

// ServeFactSQL projects one row per serve attempt with canonical typed
// outcome flags. The boolean coercion CASE is generated from the same
// truthy/falsy sets the Go path uses, and the candidate-column fallback
// comes from the shared field table, so the two paths cannot drift.
// Outcome logic relies on SQL three-valued semantics: an unparseable
// fault flag leaves is_in (and everything downstream of it) NULL.
func ServeFactSQL(pointCols map[string]bool) string {
	serveB := normalization.BoolSQLExpr(FallbackExpr(pointCols, normalization.FieldServe, "text"))
	faultB := normalization.BoolSQLExpr(FallbackExpr(pointCols, normalization.FieldFault, "text"))
	dfB := normalization.BoolSQLExpr(FallbackExpr(pointCols, normalization.FieldDoubleFault, "text"))
	placementB := normalization.BoolSQLExpr(FallbackExpr(pointCols, normalization.FieldPlacementAd, "text"))
	sideT := FallbackExpr(pointCols, normalization.FieldSide, "text")
	scoreT := FallbackExpr(pointCols, normalization.FieldScoreText, "text")
	rally := FallbackExpr(pointCols, normalization.FieldRallyShot, "int")
	serveTry := FallbackExpr(pointCols, normalization.FieldServeTry, "int")
	winner := FallbackExpr(pointCols, normalization.FieldWinnerID, "text")
	speed := FallbackExpr(pointCols, normalization.FieldBallSpeed, "float8")
	impactX := FallbackExpr(pointCols, normalization.FieldImpactX, "float8")
	impactY := FallbackExpr(pointCols, normalization.FieldImpactY, "float8")

	return fmt.Sprintf(`
CREATE VIEW analytics.vw_serve_fact AS
WITH src AS (
  SELECT
    p.task_id,
    p.point_number,
    p.game_number,
    p.player_id,
    p.server_id,
    p.created_at,
    p.submission_match_date,
    p.submission_customer_name,
    %s AS winner_id,
    %s AS serve_try,
    %s AS rally_ix,
    %s AS side_text,
    %s AS score_text,
    %s AS ball_speed,
    %s AS impact_x,
    %s AS impact_y,
    %s AS serve_b,
    %s AS fault_b,
    %s AS double_fault_b,
    %s AS placement_ad_b
  FROM analytics.vw_point_enriched p
)
SELECT
  task_id,
  point_number,
  game_number,
  player_id,
  server_id,
  winner_id,
  serve_try,
  CASE
    WHEN lower(btrim(COALESCE(side_text, ''))) IN ('ad', 'advantage') THEN 'ad'
    WHEN lower(btrim(COALESCE(side_text, ''))) = 'deuce' THEN 'deuce'
    WHEN placement_ad_b IS TRUE THEN 'ad'
    WHEN placement_ad_b IS FALSE THEN 'deuce'
    WHEN lower(COALESCE(score_text, '')) LIKE '%%ad%%' THEN 'ad'
    ELSE 'deuce'
  END AS side,
  fault_b AS fault,
  double_fault_b AS double_fault,
  (serve_b AND NOT fault_b AND NOT double_fault_b) AS is_in,
  (serve_b AND NOT fault_b AND NOT double_fault_b AND rally_ix IS NULL) AS unreturned,
  (winner_id = server_id) AS won_by_server,
  (serve_b AND NOT fault_b AND NOT double_fault_b AND rally_ix IS NULL AND winner_id = server_id) AS ace,
  ball_speed,
  impact_x,
  impact_y,
  created_at,
  submission_match_date,
  submission_customer_name
FROM src
WHERE serve_b IS TRUE;
`, winner, serveTry, rally, sideT, scoreT, speed, impactX, impactY, serveB, faultB, dfB, placementB)
}

// MatchSummarySQL aggregates serve facts per task and serving player.
// Every rate divides by a SUM that can be zero, so each one is wrapped in
// the null-safe CASE: no second serves means second_serve_in_rate is NULL,
// never an error and never 0. Service games won uses a correlated lookup
// of the last decided point per game against the enriched view.
func MatchSummarySQL() string {
	return `
CREATE VIEW analytics.vw_match_summary AS
WITH serves AS (
  SELECT * FROM analytics.vw_serve_fact WHERE server_id IS NOT NULL AND server_id <> ''
),
service_games AS (
  SELECT DISTINCT task_id, game_number, server_id
  FROM serves
  WHERE game_number IS NOT NULL
),
games_won AS (
  SELECT
    g.task_id,
    g.server_id,
    CASE WHEN g.server_id = (
      SELECT p.point_winner_player_id
      FROM analytics.vw_point_enriched p
      WHERE p.task_id = g.task_id
        AND p.game_number = g.game_number
        AND p.point_winner_player_id IS NOT NULL
        AND p.point_winner_player_id <> ''
      ORDER BY p.point_number DESC NULLS LAST
      LIMIT 1
    ) THEN 1 ELSE 0 END AS won
  FROM service_games g
)
SELECT
  s.task_id,
  s.server_id AS player_id,
  MAX(s.submission_customer_name) AS customer_name,
  MAX(s.submission_match_date)    AS match_date,
  COUNT(*)                                                        AS serves,
  SUM(CASE WHEN s.serve_try = 1 THEN 1 ELSE 0 END)                AS first_serves,
  SUM(CASE WHEN s.serve_try = 2 THEN 1 ELSE 0 END)                AS second_serves,
  CASE WHEN SUM(CASE WHEN s.serve_try = 1 THEN 1 ELSE 0 END) = 0 THEN NULL
       ELSE SUM(CASE WHEN s.serve_try = 1 AND s.is_in IS TRUE THEN 1 ELSE 0 END)::float
            / SUM(CASE WHEN s.serve_try = 1 THEN 1 ELSE 0 END)
  END AS first_serve_in_rate,
  CASE WHEN SUM(CASE WHEN s.serve_try = 2 THEN 1 ELSE 0 END) = 0 THEN NULL
       ELSE SUM(CASE WHEN s.serve_try = 2 AND s.is_in IS TRUE THEN 1 ELSE 0 END)::float
            / SUM(CASE WHEN s.serve_try = 2 THEN 1 ELSE 0 END)
  END AS second_serve_in_rate,
  SUM(CASE WHEN s.ace IS TRUE THEN 1 ELSE 0 END)                  AS aces,
  SUM(CASE WHEN s.double_fault IS TRUE THEN 1 ELSE 0 END)         AS double_faults,
  CASE WHEN SUM(CASE WHEN s.is_in IS TRUE THEN 1 ELSE 0 END) = 0 THEN NULL
       ELSE SUM(CASE WHEN s.is_in IS TRUE AND s.won_by_server IS TRUE THEN 1 ELSE 0 END)::float
            / SUM(CASE WHEN s.is_in IS TRUE THEN 1 ELSE 0 END)
  END AS serve_points_won_rate,
  AVG(s.ball_speed)                                               AS avg_serve_speed,
  (SELECT COUNT(*) FROM games_won gw
    WHERE gw.task_id = s.task_id AND gw.server_id = s.server_id)  AS service_games,
  (SELECT COALESCE(SUM(gw.won), 0) FROM games_won gw
    WHERE gw.task_id = s.task_id AND gw.server_id = s.server_id)  AS service_games_won
FROM serves s
GROUP BY s.task_id, s.server_id;
`
}

// PlayerDaySummarySQL folds points into per-day per-player totals. A point
// is one (task_id, point_number) pair; a player participates in every
// point of a task they appear in. Serve and return win rates are null-safe
// the same way the match summary is.
func PlayerDaySummarySQL() string {
	return `
CREATE VIEW analytics.vw_player_day_summary AS
WITH points AS (
  SELECT DISTINCT
    task_id,
    point_number,
    server_id,
    point_winner_player_id AS winner_id,
    submission_match_date  AS day
  FROM analytics.vw_point_enriched
  WHERE point_number IS NOT NULL
),
participants AS (
  SELECT DISTINCT task_id, player_id
  FROM analytics.vw_point_enriched
  WHERE player_id IS NOT NULL AND player_id <> ''
)
SELECT
  pt.day,
  pa.player_id,
  COUNT(*) AS points_played,
  SUM(CASE WHEN pt.winner_id = pa.player_id THEN 1 ELSE 0 END) AS points_won,
  CASE WHEN COUNT(*) = 0 THEN NULL
       ELSE SUM(CASE WHEN pt.winner_id = pa.player_id THEN 1 ELSE 0 END)::float / COUNT(*)
  END AS win_pct,
  CASE WHEN SUM(CASE WHEN pt.server_id = pa.player_id THEN 1 ELSE 0 END) = 0 THEN NULL
       ELSE SUM(CASE WHEN pt.server_id = pa.player_id AND pt.winner_id = pa.player_id THEN 1 ELSE 0 END)::float
            / SUM(CASE WHEN pt.server_id = pa.player_id THEN 1 ELSE 0 END)
  END AS srv_win_pct,
  CASE WHEN SUM(CASE WHEN pt.server_id <> pa.player_id THEN 1 ELSE 0 END) = 0 THEN NULL
       ELSE SUM(CASE WHEN pt.server_id <> pa.player_id AND pt.winner_id = pa.player_id THEN 1 ELSE 0 END)::float
            / SUM(CASE WHEN pt.server_id <> pa.player_id THEN 1 ELSE 0 END)
  END AS rtn_win_pct
FROM points pt
JOIN participants pa ON pa.task_id = pt.task_id
GROUP BY pt.day, pa.player_id;
`
}

// ServeTimeTrendSQL buckets serve outcomes per task, game and attempt so a
// dashboard can plot in-rate drift over the course of a match.
func ServeTimeTrendSQL() string {
	return `
CREATE VIEW analytics.vw_serve_time_trend AS
SELECT
  task_id,
  game_number,
  serve_try,
  COUNT(*) AS serves,
  CASE WHEN COUNT(*) = 0 THEN NULL
       ELSE SUM(CASE WHEN is_in IS TRUE THEN 1 ELSE 0 END)::float / COUNT(*)
  END AS in_rate,
  SUM(CASE WHEN ace IS TRUE THEN 1 ELSE 0 END) AS aces,
  SUM(CASE WHEN double_fault IS TRUE THEN 1 ELSE 0 END) AS double_faults,
  AVG(ball_speed) AS avg_serve_speed
FROM analytics.vw_serve_fact
WHERE game_number IS NOT NULL
GROUP BY task_id, game_number, serve_try;
`
}

// ServeLocDistributionSQL counts serves per player per landing lane. The
// eight lanes span the doubles court width, centered on the net post axis.
func ServeLocDistributionSQL() string {
	return `
CREATE VIEW analytics.vw_serve_loc_distribution AS
SELECT
  task_id,
  server_id AS player_id,
  side,
  width_bucket(impact_x, -5.485, 5.485, 8) AS lane,
  COUNT(*) AS serves,
  SUM(CASE WHEN ace IS TRUE THEN 1 ELSE 0 END) AS aces
FROM analytics.vw_serve_fact
WHERE impact_x IS NOT NULL
GROUP BY task_id, server_id, side, lane;
`
}
