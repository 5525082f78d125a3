package normalization

import "strings"

// Logical attribute names used by the serve-fact derivation. Each maps to an
// ordered list of column/key names the upstream feed has used for it at some
// point; the first candidate present on a row wins, even when its value
// still coerces to unknown.
const (
	FieldServe       = "serve"
	FieldServeTry    = "serve_try"
	FieldFault       = "serve_fault"
	FieldDoubleFault = "double_fault"
	FieldRallyShot   = "rally_shot"
	FieldSide        = "serve_side"
	FieldPlacementAd = "placement_ad"
	FieldScoreText   = "score_text"
	FieldPlayerID    = "player_id"
	FieldServerID    = "server_id"
	FieldWinnerID    = "point_winner_id"
	FieldPointNumber = "point_number"
	FieldGameNumber  = "game_number"
	FieldBallSpeed   = "ball_speed"
	FieldImpactX     = "impact_x"
	FieldImpactY     = "impact_y"
)

// FieldTable is the ordered-fallback resolution table for the schema drift
// across ingestion revisions. Order matters: serve_try predates
// serve_attempt and wins when both are present.
var FieldTable = map[string][]string{
	FieldServe:       {"serve", "is_serve", "serve_d"},
	FieldServeTry:    {"serve_try", "serve_attempt", "serve_try_ix_in_point"},
	FieldFault:       {"serve_fault", "is_serve_fault", "is_serve_fault_d", "fault"},
	FieldDoubleFault: {"double_fault", "is_double_fault", "is_double_fault_d"},
	FieldRallyShot:   {"rally", "rally_shot_ix", "first_rally_shot_ix"},
	FieldSide:        {"serve_side", "serving_side", "serving_side_d"},
	FieldPlacementAd: {"placement_ad", "placement_ad_d", "is_ad_placement"},
	FieldScoreText:   {"point_score_text", "point_score_text_d", "score_state"},
	FieldPlayerID:    {"player_id", "hitter_id"},
	FieldServerID:    {"server_id", "server_player_id"},
	FieldWinnerID:    {"point_winner_player_id", "point_winner_player_id_d", "winner_id"},
	FieldPointNumber: {"point_number", "point_number_d"},
	FieldGameNumber:  {"game_number", "game_number_d"},
	FieldBallSpeed:   {"ball_speed", "serve_speed"},
	FieldImpactX:     {"ball_hit_x", "impact_x"},
	FieldImpactY:     {"ball_hit_y", "impact_y"},
}

// Resolve finds the first candidate key present on the row. Presence wins:
// a present-but-null value stops the fallback chain.
func Resolve(row map[string]any, logical string) (any, bool) {
	for _, name := range FieldTable[logical] {
		if v, ok := row[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func resolveBool(row map[string]any, logical string) *bool {
	v, ok := Resolve(row, logical)
	if !ok {
		return nil
	}
	return CoerceBool(v)
}

func resolveInt(row map[string]any, logical string) *int {
	v, ok := Resolve(row, logical)
	if !ok {
		return nil
	}
	return CoerceInt(v)
}

func resolveFloat(row map[string]any, logical string) *float64 {
	v, ok := Resolve(row, logical)
	if !ok {
		return nil
	}
	return CoerceFloat(v)
}

func resolveString(row map[string]any, logical string) *string {
	v, ok := Resolve(row, logical)
	if !ok {
		return nil
	}
	return CoerceString(v)
}

// Side of the court the serve was struck from.
type Side string

const (
	SideDeuce Side = "deuce"
	SideAd    Side = "ad"
)

// ServeFact is the canonical per-serve row. All outcome flags are
// three-valued: nil means the source data could not answer.
type ServeFact struct {
	PlayerID    *string
	ServerID    *string
	WinnerID    *string
	PointNumber *int
	GameNumber  *int
	ServeTry    *int

	Side       Side
	SideSource string

	Fault       *bool
	DoubleFault *bool
	In          *bool
	Unreturned  *bool
	Ace         *bool
	WonByServer *bool

	BallSpeed *float64
	ImpactX   *float64
	ImpactY   *float64
}

// DeriveServeFact maps one raw point-event row onto a canonical serve fact.
// Returns ok=false when the row is not a serve (including when the serve
// flag is unknown).
//
// Predicates:
//
//	in         = serve AND NOT fault AND NOT double_fault
//	unreturned = in AND no rally-shot index recorded
//	ace        = unreturned AND point winner == server
func DeriveServeFact(row map[string]any) (*ServeFact, bool) {
	serve := resolveBool(row, FieldServe)
	if !IsTrue(serve) {
		return nil, false
	}

	f := &ServeFact{
		PlayerID:    resolveString(row, FieldPlayerID),
		ServerID:    resolveString(row, FieldServerID),
		WinnerID:    resolveString(row, FieldWinnerID),
		PointNumber: resolveInt(row, FieldPointNumber),
		GameNumber:  resolveInt(row, FieldGameNumber),
		ServeTry:    resolveInt(row, FieldServeTry),
		Fault:       resolveBool(row, FieldFault),
		DoubleFault: resolveBool(row, FieldDoubleFault),
		BallSpeed:   resolveFloat(row, FieldBallSpeed),
		ImpactX:     resolveFloat(row, FieldImpactX),
		ImpactY:     resolveFloat(row, FieldImpactY),
	}

	f.In = And(serve, Not(f.Fault), Not(f.DoubleFault))

	// A serve only counts as returned when the rally value carries a real
	// shot index. Empty or unparseable rally text coerces to nil, landing
	// on the same side as the integer rally column's IS NULL test in the
	// serve-fact view.
	rallyVal, _ := Resolve(row, FieldRallyShot)
	noRally := CoerceInt(rallyVal) == nil
	f.Unreturned = And(f.In, &noRally)

	f.WonByServer = wonByServer(f.WinnerID, f.ServerID)
	f.Ace = And(f.Unreturned, f.WonByServer)

	f.Side, f.SideSource = deriveSide(row)

	return f, true
}

func wonByServer(winner, server *string) *bool {
	if winner == nil || server == nil {
		return nil
	}
	b := *winner == *server
	return &b
}

// deriveSide applies a single documented precedence over the competing
// historical encodings: explicit side field, then the ad-placement flag,
// then an "ad" substring in the score text, then the deuce default.
func deriveSide(row map[string]any) (Side, string) {
	if s := resolveString(row, FieldSide); s != nil {
		switch strings.ToLower(*s) {
		case "ad", "advantage":
			return SideAd, "side_field"
		case "deuce":
			return SideDeuce, "side_field"
		}
	}
	if p := resolveBool(row, FieldPlacementAd); p != nil {
		if *p {
			return SideAd, "placement_flag"
		}
		return SideDeuce, "placement_flag"
	}
	if sc := resolveString(row, FieldScoreText); sc != nil {
		if strings.Contains(strings.ToLower(*sc), "ad") {
			return SideAd, "score_text"
		}
	}
	return SideDeuce, "default"
}
