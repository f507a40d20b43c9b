package card

// quotes is the bounded caption pool printed at the foot of each card.
var quotes = []string{
	"Code the future.",
	"Innovate beyond limits.",
	"Build. Break. Repeat.",
	"AI is the new electricity.",
	"Think. Build. Lead.",
	"Dream big, code bigger.",
	"Hack today, lead tomorrow.",
	"Every bug is a chance to learn something new.",
	"Make it work, make it right, make it fast.",
	"Commit to excellence, push to success.",
	"Ship it, measure it, improve it.",
	"The best way to predict the future is to build it.",
	"Transform ideas into reality.",
	"Build solutions, not just code.",
	"Keep learning, keep coding, keep winning.",
}

// QuoteByIndex returns a caption deterministically, so re-generating a
// team's cards yields identical pages.
func QuoteByIndex(i int) string {
	if i < 0 {
		i = -i
	}
	return quotes[i%len(quotes)]
}
