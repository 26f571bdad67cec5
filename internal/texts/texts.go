// Package texts holds the canned Russian reply sets and the grammar helpers
// for generated time phrases.
package texts

import "strconv"

// TimeUnit carries the three grammatical forms of a unit: the exactly-one
// form, the few form (2..4) and the many form.
type TimeUnit struct {
	One  string
	Few  string
	Many string
}

// TimeUnits are the units the "когда" intent draws from.
var TimeUnits = []TimeUnit{
	{"день", "дня", "дней"},
	{"месяц", "месяца", "месяцев"},
	{"год", "года", "лет"},
	{"час", "часа", "часов"},
	{"минуту", "минуты", "минут"},
	{"секунду", "секунды", "секунд"},
}

// VagueTimeResponses are the canned answers for "когда" when no concrete
// duration is generated.
var VagueTimeResponses = []string{
	"Никогда",
	"Завтра",
	"Потом",
	"Когда-нибудь",
	"Сегодня",
	"Послезавтра",
	"Скоро",
	"Сейчас",
	"Скоро, но это не точно",
}

// QuantityResponses are the canned qualitative answers that can replace a
// drawn number in "сколько" and templated {number}/{percent} placeholders.
var QuantityResponses = []string{
	"Много",
	"Мало",
	"Нисколько",
	"Столько, что не сосчитать",
	"Больше, чем ты думаешь",
	"Меньше, чем хотелось бы",
	"Ровно столько, сколько нужно",
}

// InsultFallbacks are used when the generation collaborator returns nothing.
var InsultFallbacks = []string{
	"Даже отвечать тебе лень",
	"Сам понял, что написал?",
	"Без комментариев",
	"Не дождёшься",
}

// In formats a "Через N <unit>" phrase, picking the unit form by the Russian
// plural rule over n mod 10 and n mod 100.
func In(unit TimeUnit, n int) string {
	return "Через " + strconv.Itoa(n) + " " + PluralForm(unit, n)
}

// PluralForm selects the grammatical form of unit matching n.
func PluralForm(unit TimeUnit, n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return unit.One
	case n%10 > 1 && n%10 < 5 && (n%100 < 10 || n%100 >= 20):
		return unit.Few
	default:
		return unit.Many
	}
}
