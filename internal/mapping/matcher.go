package mapping

import "strings"

// similarityThreshold is the minimum edit-distance score accepted when
// neither exact nor synonym matching found a candidate.
const similarityThreshold = 70

// synonymTable maps canonical column concepts to their common spelling
// variants. A source name matches a concept if it equals a listed variant or
// contains the canonical token.
var synonymTable = map[string][]string{
	"email":     {"email", "e-mail", "mail", "email_address", "emailaddress", "correo"},
	"firstname": {"firstname", "first_name", "first name", "fname", "givenname", "given_name", "nombre"},
	"lastname":  {"lastname", "last_name", "last name", "lname", "surname", "familyname", "family_name", "apellido"},
	"company":   {"company", "organization", "organisation", "org", "employer", "business", "empresa"},
	"phone":     {"phone", "telephone", "tel", "mobile", "cell", "phone_number", "phonenumber", "telefono"},
	"address":   {"address", "street", "addr", "location", "direccion"},
}

// SmartMatch proposes a target field for a source column name. Priority:
// case-insensitive exact match, then the synonym table, then edit-distance
// similarity against all candidates with a minimum score of 70. Returns the
// chosen candidate and its similarity score, or "" when nothing qualifies.
func SmartMatch(sourceColumn string, candidates []string) (string, int) {
	source := strings.ToLower(strings.TrimSpace(sourceColumn))
	if source == "" {
		return "", 0
	}

	// Exact match wins outright.
	for _, cand := range candidates {
		if strings.ToLower(strings.TrimSpace(cand)) == source {
			return cand, 100
		}
	}

	// Synonym-table match: the source names a known concept and some
	// candidate carries that concept too.
	for concept, variants := range synonymTable {
		if !matchesConcept(source, concept, variants) {
			continue
		}
		for _, cand := range candidates {
			if candidateMatches(strings.ToLower(strings.TrimSpace(cand)), concept, variants) {
				return cand, CalculateSimilarity(sourceColumn, cand)
			}
		}
	}

	// Edit-distance fallback: best candidate above the threshold.
	bestScore := 0
	best := ""
	for _, cand := range candidates {
		if score := CalculateSimilarity(sourceColumn, cand); score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if bestScore >= similarityThreshold {
		return best, bestScore
	}
	return "", 0
}

// matchesConcept tests a source name: it must be a listed variant or contain
// the canonical token.
func matchesConcept(name, concept string, variants []string) bool {
	if strings.Contains(name, concept) {
		return true
	}
	for _, v := range variants {
		if name == v {
			return true
		}
	}
	return false
}

// candidateMatches tests a target candidate: containing the canonical token
// or any variant is enough.
func candidateMatches(name, concept string, variants []string) bool {
	if strings.Contains(name, concept) {
		return true
	}
	for _, v := range variants {
		if strings.Contains(name, v) {
			return true
		}
	}
	return false
}
