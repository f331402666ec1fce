package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minKeywordRunes = 4
	maxRewriteTerms = 3
)

// interrogativeStopwords covers question words and fillers in English and Portuguese.
// Tokens shorter than minKeywordRunes are dropped separately, so short words are not listed.
var interrogativeStopwords = map[string]struct{}{
	// English
	"what": {}, "which": {}, "where": {}, "when": {}, "whom": {}, "whose": {}, "why": {},
	"does": {}, "did": {}, "have": {}, "there": {}, "their": {}, "about": {}, "tell": {},
	"explain": {}, "describe": {}, "would": {}, "could": {}, "should": {}, "please": {},
	"that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "into": {},
	// Portuguese
	"qual": {}, "quais": {}, "quando": {}, "onde": {}, "como": {}, "quem": {}, "porque": {},
	"quanto": {}, "quantos": {}, "quantas": {}, "sobre": {}, "pode": {}, "podem": {},
	"explique": {}, "descreva": {}, "fale": {}, "diga": {}, "principais": {}, "existe": {},
	"existem": {}, "isso": {}, "essa": {}, "esse": {}, "esta": {}, "este": {}, "para": {},
	"pelo": {}, "pela": {}, "entre": {}, "mais": {}, "muito": {}, "foram": {}, "seria": {},
}

// domainKeywords are the São Paulo regional-economy terms that make a query specific.
var domainKeywords = map[string]struct{}{
	"automotiva": {}, "automotivo": {}, "automotive": {}, "veículos": {}, "vehicles": {},
	"têxtil": {}, "textile": {}, "farmacêutica": {}, "pharmaceutical": {},
	"máquinas": {}, "equipamentos": {}, "machinery": {}, "metalúrgica": {}, "metallurgy": {},
	"agropecuária": {}, "agribusiness": {}, "agronegócio": {}, "biocombustíveis": {}, "biofuels": {},
	"etanol": {}, "ethanol": {}, "balança": {}, "comercial": {}, "trade": {}, "balance": {},
	"exportações": {}, "importações": {}, "exports": {}, "imports": {},
	"indústria": {}, "industrial": {}, "industry": {}, "energia": {}, "energy": {},
	"transição": {}, "transition": {}, "emprego": {}, "employment": {}, "serviços": {},
	"investimentos": {}, "investment": {}, "produtividade": {}, "productivity": {},
}

// RewriteQuery derives a keyword-focused query for the fallback retrieval attempt.
// It is a best-effort heuristic, not a semantic rewrite: stop-words and short tokens
// are dropped, domain keywords win when present, and at most three terms are kept.
// It never returns an empty string; when nothing survives the original query is returned.
func RewriteQuery(query string) string {
	survivors := make([]string, 0)
	for _, token := range filterStopwords(tokenize(query)) {
		if utf8.RuneCountInString(token) < minKeywordRunes {
			continue
		}
		survivors = append(survivors, token)
	}
	if len(survivors) == 0 {
		return query
	}

	keywords := make([]string, 0, maxRewriteTerms)
	for _, token := range survivors {
		if _, ok := domainKeywords[token]; ok {
			keywords = append(keywords, token)
		}
	}
	if len(keywords) > 0 {
		return strings.Join(firstN(keywords, maxRewriteTerms), " ")
	}
	return strings.Join(firstN(survivors, maxRewriteTerms), " ")
}

func firstN(tokens []string, n int) []string {
	if len(tokens) > n {
		return tokens[:n]
	}
	return tokens
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := interrogativeStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
