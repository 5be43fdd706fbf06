// Package model contains domain models passed between layers.
package model

import "time"

// Score bounds for every rating category.
const (
	MinCategoryScore = 0
	MaxCategoryScore = 40
	CategoryCount    = 6
	MaxTotalScore    = MaxCategoryScore * CategoryCount
	MaxCommentLength = 500
)

// DefaultBranch is recorded for members whose identity carries no branch.
const DefaultBranch = "Not specified"

// User is the caller identity supplied by the external identity provider.
type User struct {
	ID          string `json:"userId"`
	DisplayName string `json:"displayName"`
	Branch      string `json:"branch"`
}

// Member is a user's membership record inside a group.
type Member struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Branch      string    `json:"branch"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Group is a rateable intern group. Groups are created externally; the
// engine only reads and writes members and ratings.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Scores holds the six category values of one rating.
type Scores struct {
	Communication     int `json:"communication" validate:"min=0,max=40"`
	Presentation      int `json:"presentation" validate:"min=0,max=40"`
	Content           int `json:"content" validate:"min=0,max=40"`
	HelpfulForCompany int `json:"helpfulForCompany" validate:"min=0,max=40"`
	HelpfulForInterns int `json:"helpfulForInterns" validate:"min=0,max=40"`
	Participation     int `json:"participation" validate:"min=0,max=40"`
}

// Sum returns the six-category total of the scores.
func (s Scores) Sum() int {
	return s.Communication + s.Presentation + s.Content +
		s.HelpfulForCompany + s.HelpfulForInterns + s.Participation
}

// Rating is a single immutable rating submission.
type Rating struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	RaterUserID string    `json:"raterUserId"`
	RaterName   string    `json:"raterName"`
	Scores      Scores    `json:"scores"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Points is the rating's six-category sum.
func (r Rating) Points() int { return r.Scores.Sum() }

// GroupStats is derived from a group's ratings and never stored.
type GroupStats struct {
	RatingCount          int     `json:"ratingCount"`
	AvgCommunication     float64 `json:"avgCommunication"`
	AvgPresentation      float64 `json:"avgPresentation"`
	AvgContent           float64 `json:"avgContent"`
	AvgHelpfulForCompany float64 `json:"avgHelpfulForCompany"`
	AvgHelpfulForInterns float64 `json:"avgHelpfulForInterns"`
	AvgParticipation     float64 `json:"avgParticipation"`
	TotalRating          float64 `json:"totalRating"`
}

// LiveEvent is an ephemeral feed entry describing a submitted rating.
type LiveEvent struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
	Breakdown Scores    `json:"breakdown"`
	IsSelf    bool      `json:"isSelf"`
	// RaterUserID is used to derive IsSelf for a viewer and is not exposed.
	RaterUserID string `json:"-"`
}

// ViewerFlags describes what a particular user may do with a group.
type ViewerFlags struct {
	IsMember bool `json:"isMember"`
	HasRated bool `json:"hasRated"`
	CanRate  bool `json:"canRate"`
}

// RankedGroup is one leaderboard row. Viewer is set only when the
// leaderboard was requested for a specific user.
type RankedGroup struct {
	Rank        int          `json:"rank"`
	Group       Group        `json:"group"`
	Stats       GroupStats   `json:"stats"`
	MemberCount int          `json:"memberCount"`
	Viewer      *ViewerFlags `json:"viewer,omitempty"`
}
