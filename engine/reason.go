package engine

// 推荐解释文案：按贡献策略/因子挑一条最具体的。
var (
	strategyReasons = map[string]string{
		"collaborative": "Readers with similar taste loved this book",
		"content":       "Closely matches your reading preferences",
		"hybrid":        "A strong match based on your taste and similar readers",
		"demographic":   "Popular with readers like you",
		"coldstart":     "A great pick to start exploring",
		"recent":        "Recently added to the catalog",
	}

	factorReasons = map[string]string{
		"neighbor_endorsed": "Readers with similar taste loved this book",
		"vector_search":     "Closely matches your reading preferences",
		"vector_fallback":   "Matches several aspects of your taste",
		"mood_match":        "Fits your current mood",
		"time_match":        "A good fit for this time of day",
		"genre_request":     "From a genre you asked for",
		"publication_match": "From the era you're looking for",
		"exploration":       "A great pick to start exploring",
		"recent_addition":   "Recently added to the catalog",
		"popular":           "Popular with other readers",
	}

	// dailyMessages 每日推荐的问候语，按星期轮换（周日起）。
	dailyMessages = []string{
		"Sunday is for slow reading",
		"Start your week with a great read",
		"A page a day keeps boredom away",
		"Your midweek literary escape",
		"Something special for your Thursday",
		"Kick off the weekend with this pick",
		"A perfect Saturday companion",
	}
)

// reasonFor 从策略与因子中挑一条解释：因子更具体，优先于策略。
func reasonFor(strategies, factors []string) string {
	for _, f := range factors {
		if msg, ok := factorReasons[f]; ok {
			return msg
		}
	}
	for _, s := range strategies {
		if msg, ok := strategyReasons[s]; ok {
			return msg
		}
	}
	return "Recommended for you"
}
