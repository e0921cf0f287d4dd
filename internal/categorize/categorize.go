package categorize

import (
	"strings"

	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/utils"
)

// rule couples a category with its bilingual keyword set. Rules are
// evaluated in order; the first match wins, so the slice encodes
// priority (legal outranks conflict, conflict outranks politics).
type rule struct {
	category models.Category
	keywords []string
}

var rules = []rule{
	{models.CategoryLegal, []string{
		"court", "lawsuit", "trial", "verdict", "indictment", "prosecutor",
		"arrest", "detained", "sentenced", "criminal case", "fraud charges",
		"суд", "иск", "приговор", "арест", "задержан", "прокурор",
		"уголовное дело", "следствие", "обвинение", "приговорил",
	}},
	{models.CategoryConflict, []string{
		"war", "attack", "strike", "missile", "invasion", "offensive",
		"troops", "ceasefire", "airstrike", "shelling", "frontline",
		"война", "атака", "удар", "ракета", "вторжение", "наступление",
		"обстрел", "перемирие", "боевые действия", "фронт",
	}},
	{models.CategoryBusiness, []string{
		"market", "stocks", "economy", "inflation", "revenue", "profit",
		"merger", "ipo", "bankruptcy", "investment", "central bank",
		"рынок", "акции", "экономика", "инфляция", "прибыль", "банкротство",
		"инвестиции", "сделка", "валюта", "центробанк",
	}},
	{models.CategoryTech, []string{
		"software", "startup", "artificial intelligence", "semiconductor",
		"smartphone", "cybersecurity", "blockchain", "data center", "app", "apps",
		"технологии", "стартап", "искусственный интеллект", "нейросеть",
		"кибератака", "софт", "приложение", "гаджет",
	}},
	{models.CategoryScience, []string{
		"research", "study finds", "scientists", "discovery", "vaccine",
		"climate", "space", "telescope", "experiment", "physics",
		"исследование", "ученые", "открытие", "вакцина", "климат",
		"космос", "эксперимент", "наука",
	}},
	{models.CategorySociety, []string{
		"protest", "strike action", "education", "healthcare", "migration",
		"community", "housing", "culture", "religion", "demography",
		"протест", "забастовка", "образование", "здравоохранение",
		"миграция", "общество", "культура", "религия",
	}},
	{models.CategoryPolitics, []string{
		"election", "president", "parliament", "minister", "government",
		"sanctions", "diplomacy", "summit", "referendum", "opposition",
		"выборы", "президент", "парламент", "министр", "правительство",
		"санкции", "дипломатия", "референдум", "оппозиция", "госдума",
	}},
}

// compiledRule holds a rule's keywords pre-tokenized for whole-word
// matching.
type compiledRule struct {
	category models.Category
	keywords [][]string
}

var compiled = compileRules()

func compileRules() []compiledRule {
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		out[i] = compiledRule{
			category: r.category,
			keywords: utils.TokenizeKeywords(r.keywords),
		}
	}
	return out
}

// Categorize assigns a category from the fixed set based on the three
// text fields. Keywords match case-insensitively against whole word
// tokens, never inside longer words ("war" does not fire on
// "software"); the rule order resolves items matching several sets
// deterministically. Empty input falls through to the general category.
func Categorize(title, summary, description string) models.Category {
	tokens := utils.Tokenize(strings.Join([]string{title, summary, description}, " "))
	if len(tokens) == 0 {
		return models.CategoryGeneral
	}
	for _, r := range compiled {
		for _, kw := range r.keywords {
			if utils.ContainsTokens(tokens, kw) {
				return r.category
			}
		}
	}
	return models.CategoryGeneral
}

// CategorizeItem categorizes a raw feed item, coercing dynamically
// typed payload fields to text first so malformed payloads degrade to
// the general category instead of failing.
func CategorizeItem(item models.RawItem) models.Category {
	title := item.Title
	summary := item.Summary
	description := item.Description
	if title == "" {
		title = utils.CoerceString(item.Extra["title"])
	}
	if summary == "" {
		summary = utils.CoerceString(item.Extra["summary"])
	}
	if description == "" {
		description = utils.CoerceString(item.Extra["description"])
	}
	return Categorize(title, summary, description)
}
