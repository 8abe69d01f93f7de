package viewmodel

// RosterRow holds one ranked participant for rendering.
type RosterRow struct {
	Rank         int
	Name         string
	Score        int
	ScoreVisible bool
	Acted        bool
	Hint         string
}

// RosterFragment holds data for the roster panel.
type RosterFragment struct {
	Rows []RosterRow
}

// OptionButton holds one choice button.
type OptionButton struct {
	Value   string
	Label   string
	Enabled bool
	Visible bool
}

// RoundFragment holds data for the choice panel.
type RoundFragment struct {
	Phase    string
	Visible  bool
	Status   string
	Options  []OptionButton
	Last     string
	Extended bool
	Cooldown bool
}

// SummaryFragment holds data for the final scoreboard.
type SummaryFragment struct {
	Visible    bool
	Seq        int
	WinnerName string
	Rows       []RosterRow
}

// Notice holds one line of the notice feed.
type Notice struct {
	Time string
	Text string
}

// NoticesFragment holds data for the notice feed, newest first.
type NoticesFragment struct {
	Notices []Notice
}

// ClientPage holds data for the main page template.
type ClientPage struct {
	Title   string
	Roster  RosterFragment
	Round   RoundFragment
	Summary SummaryFragment
	Notices NoticesFragment
}
