package schema

// ActivityView is the flattened per-component payload served by the CLI and
// the query API. It is derived from a ScoreResult; counts come from the
// per-source detail structs and are zero when a source produced no data.
type ActivityView struct {
	ComponentID          string  `json:"component_id"`
	ComponentName        string  `json:"component_name,omitempty"`
	ActivityScore        float64 `json:"activity_score"`
	DissatisfactionScore float64 `json:"dissatisfaction_score"`
	SeverityScore        float64 `json:"severity_score"`
	GitEvents            int     `json:"git_events"`
	SlackConversations   int     `json:"slack_conversations"`
	SlackComplaints      int     `json:"slack_complaints"`
	OpenSupportCases     int     `json:"open_support_cases"`
	OpenDocIssues        int     `json:"open_doc_issues"`
	TimeWindowLabel      string  `json:"time_window_label"`
	NoSignals            bool    `json:"no_signals,omitempty"`
}

// NewActivityView flattens a ScoreResult for presentation.
func NewActivityView(r ScoreResult) ActivityView {
	view := ActivityView{
		ComponentID:          r.ComponentID,
		ComponentName:        r.ComponentName,
		ActivityScore:        r.ActivityScore,
		DissatisfactionScore: r.DissatisfactionScore,
		SeverityScore:        r.SeverityScore,
		TimeWindowLabel:      TimeWindowLabel(r.WindowHours),
		NoSignals:            r.NoSignals,
	}
	if git := r.Details.Git; git != nil {
		view.GitEvents = git.PRCount + git.CommitCount
	}
	if slack := r.Details.Slack; slack != nil {
		view.SlackConversations = slack.ThreadCount
		view.SlackComplaints = slack.ComplaintCount
	}
	if support := r.Details.Support; support != nil {
		view.OpenSupportCases = support.OpenCases
	}
	if doc := r.Details.Doc; doc != nil {
		view.OpenDocIssues = doc.OpenIssues
	}
	return view
}
