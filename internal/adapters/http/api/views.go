package api

import (
	"time"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/internal/domain/ranking"
)

// statsDisplay holds the one-decimal values shown to users. Ordering
// always uses the raw stats.
type statsDisplay struct {
	AvgCommunication     float64 `json:"avgCommunication"`
	AvgPresentation      float64 `json:"avgPresentation"`
	AvgContent           float64 `json:"avgContent"`
	AvgHelpfulForCompany float64 `json:"avgHelpfulForCompany"`
	AvgHelpfulForInterns float64 `json:"avgHelpfulForInterns"`
	AvgParticipation     float64 `json:"avgParticipation"`
	TotalRating          float64 `json:"totalRating"`
}

type groupView struct {
	Rank        int              `json:"rank"`
	RankLabel   string           `json:"rankLabel"`
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	MemberCount int              `json:"memberCount"`
	Stats       model.GroupStats `json:"stats"`
	Display     statsDisplay     `json:"display"`
	*model.ViewerFlags
}

func newGroupView(row model.RankedGroup) groupView { //nolint:gocritic // rows are small values
	st := row.Stats
	return groupView{
		Rank:        row.Rank,
		RankLabel:   ranking.Ordinal(row.Rank),
		ID:          row.Group.ID,
		Name:        row.Group.Name,
		MemberCount: row.MemberCount,
		Stats:       st,
		Display: statsDisplay{
			AvgCommunication:     ranking.Round1(st.AvgCommunication),
			AvgPresentation:      ranking.Round1(st.AvgPresentation),
			AvgContent:           ranking.Round1(st.AvgContent),
			AvgHelpfulForCompany: ranking.Round1(st.AvgHelpfulForCompany),
			AvgHelpfulForInterns: ranking.Round1(st.AvgHelpfulForInterns),
			AvgParticipation:     ranking.Round1(st.AvgParticipation),
			TotalRating:          ranking.Round1(st.TotalRating),
		},
		ViewerFlags: row.Viewer,
	}
}

type groupsResponse struct {
	Groups      []groupView `json:"groups"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

type ratingView struct {
	model.Rating
	Points int `json:"points"`
}

func newRatingView(r model.Rating) ratingView { //nolint:gocritic // rating is copied into the view
	return ratingView{Rating: r, Points: r.Points()}
}

type ratingsResponse struct {
	GroupID string       `json:"groupId"`
	Ratings []ratingView `json:"ratings"`
}

type membersResponse struct {
	GroupID string         `json:"groupId"`
	Members []model.Member `json:"members"`
}

type liveFeedResponse struct {
	Events         []model.LiveEvent `json:"events"`
	PollIntervalMS int64             `json:"pollIntervalMs"`
}
