package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

// Typed projections of the analytics views. Column names match the view
// projections exactly; dashboards and this API share the same contract.

type MatchSummaryRow struct {
	TaskID             string     `gorm:"column:task_id" json:"task_id"`
	PlayerID           string     `gorm:"column:player_id" json:"player_id"`
	CustomerName       *string    `gorm:"column:customer_name" json:"customer_name"`
	MatchDate          *time.Time `gorm:"column:match_date" json:"match_date"`
	Serves             int        `gorm:"column:serves" json:"serves"`
	FirstServes        int        `gorm:"column:first_serves" json:"first_serves"`
	SecondServes       int        `gorm:"column:second_serves" json:"second_serves"`
	FirstServeInRate   *float64   `gorm:"column:first_serve_in_rate" json:"first_serve_in_rate"`
	SecondServeInRate  *float64   `gorm:"column:second_serve_in_rate" json:"second_serve_in_rate"`
	Aces               int        `gorm:"column:aces" json:"aces"`
	DoubleFaults       int        `gorm:"column:double_faults" json:"double_faults"`
	ServePointsWonRate *float64   `gorm:"column:serve_points_won_rate" json:"serve_points_won_rate"`
	AvgServeSpeed      *float64   `gorm:"column:avg_serve_speed" json:"avg_serve_speed"`
	ServiceGames       int        `gorm:"column:service_games" json:"service_games"`
	ServiceGamesWon    int        `gorm:"column:service_games_won" json:"service_games_won"`
}

type PlayerDaySummaryRow struct {
	Day          *time.Time `gorm:"column:day" json:"day"`
	PlayerID     string     `gorm:"column:player_id" json:"player_id"`
	PointsPlayed int        `gorm:"column:points_played" json:"points_played"`
	PointsWon    int        `gorm:"column:points_won" json:"points_won"`
	WinPct       *float64   `gorm:"column:win_pct" json:"win_pct"`
	SrvWinPct    *float64   `gorm:"column:srv_win_pct" json:"srv_win_pct"`
	RtnWinPct    *float64   `gorm:"column:rtn_win_pct" json:"rtn_win_pct"`
}

type ServeTimeTrendRow struct {
	TaskID        string   `gorm:"column:task_id" json:"task_id"`
	GameNumber    int      `gorm:"column:game_number" json:"game_number"`
	ServeTry      *int     `gorm:"column:serve_try" json:"serve_try"`
	Serves        int      `gorm:"column:serves" json:"serves"`
	InRate        *float64 `gorm:"column:in_rate" json:"in_rate"`
	Aces          int      `gorm:"column:aces" json:"aces"`
	DoubleFaults  int      `gorm:"column:double_faults" json:"double_faults"`
	AvgServeSpeed *float64 `gorm:"column:avg_serve_speed" json:"avg_serve_speed"`
}

type ServeLocRow struct {
	TaskID   string `gorm:"column:task_id" json:"task_id"`
	PlayerID string `gorm:"column:player_id" json:"player_id"`
	Side     string `gorm:"column:side" json:"side"`
	Lane     *int   `gorm:"column:lane" json:"lane"`
	Serves   int    `gorm:"column:serves" json:"serves"`
	Aces     int    `gorm:"column:aces" json:"aces"`
}

type ReportRepo interface {
	MatchSummary(ctx context.Context, taskID string) ([]MatchSummaryRow, error)
	PlayerDaySummary(ctx context.Context) ([]PlayerDaySummaryRow, error)
	ServeTimeTrend(ctx context.Context, taskID string) ([]ServeTimeTrendRow, error)
	ServeLocDistribution(ctx context.Context, taskID string) ([]ServeLocRow, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (rr *reportRepo) MatchSummary(ctx context.Context, taskID string) ([]MatchSummaryRow, error) {
	var rows []MatchSummaryRow
	err := rr.db.WithContext(ctx).
		Raw(`SELECT * FROM analytics.vw_match_summary WHERE task_id = ? ORDER BY player_id`, taskID).
		Scan(&rows).Error
	return rows, err
}

func (rr *reportRepo) PlayerDaySummary(ctx context.Context) ([]PlayerDaySummaryRow, error) {
	var rows []PlayerDaySummaryRow
	err := rr.db.WithContext(ctx).
		Raw(`SELECT * FROM analytics.vw_player_day_summary ORDER BY day, player_id`).
		Scan(&rows).Error
	return rows, err
}

func (rr *reportRepo) ServeTimeTrend(ctx context.Context, taskID string) ([]ServeTimeTrendRow, error) {
	var rows []ServeTimeTrendRow
	err := rr.db.WithContext(ctx).
		Raw(`SELECT * FROM analytics.vw_serve_time_trend WHERE task_id = ? ORDER BY game_number, serve_try`, taskID).
		Scan(&rows).Error
	return rows, err
}

func (rr *reportRepo) ServeLocDistribution(ctx context.Context, taskID string) ([]ServeLocRow, error) {
	var rows []ServeLocRow
	err := rr.db.WithContext(ctx).
		Raw(`SELECT * FROM analytics.vw_serve_loc_distribution WHERE task_id = ? ORDER BY player_id, side, lane`, taskID).
		Scan(&rows).Error
	return rows, err
}
