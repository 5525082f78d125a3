package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PointEvent is one swing inside a point as the capture pipeline shipped
// it. Append-only: rows are never updated, a re-upload produces new rows
// under a new submission context. Outcome flags stay text because the feed
// has shipped them as booleans, 0/1 and free text across revisions; the
// normalization layer owns their meaning.
type PointEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID    string    `gorm:"not null;index;column:task_id" json:"task_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`

	PointNumber *int   `gorm:"column:point_number" json:"point_number"`
	GameNumber  *int   `gorm:"column:game_number" json:"game_number"`
	SetNumber   *int   `gorm:"column:set_number" json:"set_number"`
	ShotIx      *int   `gorm:"column:shot_ix" json:"shot_ix"`
	PlayerID    string `gorm:"index;column:player_id" json:"player_id"`
	ServerID    string `gorm:"column:server_id" json:"server_id"`

	Serve          string `gorm:"column:serve" json:"serve"`
	ServeTry       *int   `gorm:"column:serve_try" json:"serve_try"`
	ServeFault     string `gorm:"column:serve_fault" json:"serve_fault"`
	DoubleFault    string `gorm:"column:double_fault" json:"double_fault"`
	Rally          *int   `gorm:"column:rally" json:"rally"`
	ServeSide      string `gorm:"column:serve_side" json:"serve_side"`
	PlacementAd    string `gorm:"column:placement_ad" json:"placement_ad"`
	PointScoreText string `gorm:"column:point_score_text" json:"point_score_text"`
	PointWinnerID  string `gorm:"column:point_winner_player_id" json:"point_winner_player_id"`

	BallHitS  *float64 `gorm:"column:ball_hit_s" json:"ball_hit_s"`
	BallSpeed *float64 `gorm:"column:ball_speed" json:"ball_speed"`
	BallHitX  *float64 `gorm:"column:ball_hit_x" json:"ball_hit_x"`
	BallHitY  *float64 `gorm:"column:ball_hit_y" json:"ball_hit_y"`

	Exclude string         `gorm:"column:exclude" json:"exclude"`
	Extra   datatypes.JSON `gorm:"column:extra" json:"extra"`
}

func (PointEvent) TableName() string {
	return "bronze.point_event"
}
