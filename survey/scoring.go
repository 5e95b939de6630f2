package survey

import (
	"sort"

	"github.com/pollwise/pollwise/model"
)

// Grade reports whether a respondent's answers to one question earn
// its score. Comparison is case-sensitive, exact and order-independent:
// both sides are sorted before comparing.
//
//   - text, choose_one, dropdown_list: exactly one answer, and it is a
//     member of the correct set.
//   - choose_many: the answer set equals the correct set exactly; no
//     partial credit.
func Grade(questionType model.QuestionType, correct, given []string) bool {
	c := append([]string(nil), correct...)
	g := append([]string(nil), given...)
	sort.Strings(c)
	sort.Strings(g)

	switch questionType {
	case model.QuestionText, model.QuestionChooseOne, model.QuestionDropdownList:
		if len(g) != 1 {
			return false
		}
		return contains(c, g[0])
	case model.QuestionChooseMany:
		if len(g) != len(c) {
			return false
		}
		for i := range c {
			if c[i] != g[i] {
				return false
			}
		}
		return true
	}
	return false
}

// SummaryRow is one respondent's line on the summary sheet. Identity
// fields are blank for anonymous submissions.
type SummaryRow struct {
	Email   string
	Name    string
	Surname string
	Score   int
}

// AnswerRow is one respondent's line on a question sheet, answers
// sorted.
type AnswerRow struct {
	Email   string
	Answers []string
}

// QuestionTable collects the per-question rows. Columns is the widest
// answer count over all rows; respondents with fewer answers leave
// trailing cells blank.
type QuestionTable struct {
	QuestionID string
	Title      string
	Columns    int
	Rows       []AnswerRow
}

type Aggregate struct {
	Summary   []SummaryRow
	Questions []QuestionTable
}

// BuildAggregate grades every submission against the survey's
// canonical answers and lays the outcome out as a summary table plus
// one ragged table per question, in question order.
func BuildAggregate(sv *model.Survey, results []model.SurveyResult) Aggregate {
	type questionInfo struct {
		correct []string
		typ     model.QuestionType
		score   int
		table   int
	}

	agg := Aggregate{Summary: []SummaryRow{}}
	byID := map[string]questionInfo{}
	for _, q := range sv.Questions {
		info := questionInfo{
			typ:   q.Type,
			score: q.Score,
			table: len(agg.Questions),
		}
		for _, a := range q.Answers {
			if a.IsCorrect {
				info.correct = append(info.correct, a.Text)
			}
		}
		byID[q.ID] = info
		agg.Questions = append(agg.Questions, QuestionTable{
			QuestionID: q.ID,
			Title:      q.Title,
			Rows:       []AnswerRow{},
		})
	}

	for _, result := range results {
		row := SummaryRow{}
		if result.User != nil {
			row.Email = result.User.Email
			row.Name = result.User.Name
			row.Surname = result.User.Surname
		}

		for _, qr := range result.Questions {
			info, ok := byID[qr.QuestionID]
			if !ok {
				continue
			}

			given := make([]string, 0, len(qr.Answers))
			for _, a := range qr.Answers {
				given = append(given, a.Text)
			}
			sort.Strings(given)

			if Grade(info.typ, info.correct, given) {
				row.Score += info.score
			}

			table := &agg.Questions[info.table]
			table.Rows = append(table.Rows, AnswerRow{Email: row.Email, Answers: given})
			if len(given) > table.Columns {
				table.Columns = len(given)
			}
		}

		agg.Summary = append(agg.Summary, row)
	}
	return agg
}
