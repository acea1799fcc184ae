package store

// DefaultQuestions is the starter question set loaded into an empty
// database so a fresh deployment is playable immediately.
func DefaultQuestions() []Question {
	return []Question{
		{
			Text:          "Which wire color is classically cut to defuse a movie bomb?",
			OptionA:       "Red",
			OptionB:       "Blue",
			OptionC:       "Green",
			OptionD:       "Yellow",
			CorrectOption: "Red",
			Difficulty:    "easy",
		},
		{
			Text:          "What does 'HTTP' stand for?",
			OptionA:       "HyperText Transfer Protocol",
			OptionB:       "High Throughput Transfer Process",
			OptionC:       "HyperText Tunnel Protocol",
			OptionD:       "Host Transfer Text Protocol",
			CorrectOption: "HyperText Transfer Protocol",
			Difficulty:    "easy",
		},
		{
			Text:          "Which planet is closest to the sun?",
			OptionA:       "Venus",
			OptionB:       "Mars",
			OptionC:       "Mercury",
			OptionD:       "Earth",
			CorrectOption: "Mercury",
			Difficulty:    "easy",
		},
		{
			Text:          "In binary, what is 1010 in decimal?",
			OptionA:       "8",
			OptionB:       "10",
			OptionC:       "12",
			OptionD:       "14",
			CorrectOption: "10",
			Difficulty:    "medium",
		},
		{
			Text:          "Which element has the chemical symbol 'K'?",
			OptionA:       "Krypton",
			OptionB:       "Potassium",
			OptionC:       "Calcium",
			OptionD:       "Kelvin",
			CorrectOption: "Potassium",
			Difficulty:    "medium",
		},
		{
			Text:          "What year did the first website go online?",
			OptionA:       "1989",
			OptionB:       "1991",
			OptionC:       "1993",
			OptionD:       "1995",
			CorrectOption: "1991",
			Difficulty:    "hard",
		},
		{
			Text:          "Which sorting algorithm has the best average-case time complexity?",
			OptionA:       "Bubble sort",
			OptionB:       "Insertion sort",
			OptionC:       "Merge sort",
			OptionD:       "Selection sort",
			CorrectOption: "Merge sort",
			Difficulty:    "hard",
		},
		{
			Text:          "How many bits are in a byte?",
			OptionA:       "4",
			OptionB:       "8",
			OptionC:       "16",
			OptionD:       "32",
			CorrectOption: "8",
			Difficulty:    "easy",
		},
	}
}
