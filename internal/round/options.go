package round

// Choice is the key of one selectable option.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
	Lizard   Choice = "lizard"
	Spock    Choice = "spock"
)

// Choices lists every option in display order.
var Choices = []Choice{Rock, Paper, Scissors, Lizard, Spock}

var labels = map[Choice]string{
	Rock:     "Rock",
	Paper:    "Paper",
	Scissors: "Scissors",
	Lizard:   "Lizard",
	Spock:    "Spock",
}

// Label returns the display label of c.
func (c Choice) Label() string {
	if label, ok := labels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is one of the five known options.
func (c Choice) Valid() bool {
	_, ok := labels[c]
	return ok
}

// Extra reports whether c belongs to the extended five-way set only.
func (c Choice) Extra() bool {
	return c == Lizard || c == Spock
}

// Options are the player's round settings. They outlive rounds and are read
// when a round opens.
type Options struct {
	Extended bool // offer lizard and spock
	Cooldown bool // forbid repeating the previous choice
}
