package fields

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

const (
	HectaresPerAcre = 0.4047
	MaxAreaHectares = 10000.0
)

// reArea matches a number directly followed by an area unit (lowercase view).
var reArea = regexp.MustCompile(`(-?\d{1,3}(?:,\d{3})+(?:\.\d+)?|-?\d+(?:\.\d+)?)(\s*)(hectares?|hect|ha|acres?|ac)\b`)

func extractArea(doc document) entity.FieldExtraction {
	var (
		best      float64
		bestDist  = -1
		bestStart int
	)
	for _, m := range reArea.FindAllStringSubmatchIndex(doc.lower, -1) {
		numStart, numEnd := m[2], m[3]
		raw := doc.lower[numStart:numEnd]
		if strings.HasPrefix(raw, "-") && numStart > 0 && !signContext(doc.lower[numStart-1]) {
			// "Area-3 ha": the dash is a separator, not a sign
			raw = raw[1:]
			numStart++
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue
		}
		if unit := doc.lower[m[6]:m[7]]; strings.HasPrefix(unit, "ac") {
			v *= HectaresPerAcre
		}
		if v < 0 || v > MaxAreaHectares {
			continue
		}
		dist := m[5] - m[4]
		if bestDist < 0 || dist < bestDist || (dist == bestDist && numStart < bestStart) {
			best, bestDist, bestStart = v, dist, numStart
		}
	}
	if bestDist < 0 {
		return entity.Missing(constants.FieldArea)
	}
	return entity.NumberField(constants.FieldArea, best, ConfidenceArea, constants.MethodUnitAdjacent)
}

// signContext reports whether a '-' after b reads as a minus sign.
func signContext(b byte) bool {
	return b == ' ' || b == '\n' || b == '(' || b == ':'
}
