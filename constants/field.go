package constants

// FieldName identifies one extracted claim attribute.
type FieldName string

const (
	FieldClaimantName FieldName = "claimant_name"
	FieldVillage      FieldName = "village"
	FieldArea         FieldName = "area"
	FieldStatus       FieldName = "status"
)

// RequiredFields lists every field a claim record carries, in display order.
var RequiredFields = []FieldName{FieldClaimantName, FieldVillage, FieldArea, FieldStatus}

// ExtractionMethod names the strategy that produced a field value.
type ExtractionMethod string

const (
	MethodLabelProximity    ExtractionMethod = "label_proximity"
	MethodHeuristicFallback ExtractionMethod = "heuristic_fallback"
	MethodUnitAdjacent      ExtractionMethod = "unit_adjacent"
	MethodKeyword           ExtractionMethod = "keyword_vocabulary"
	MethodDefault           ExtractionMethod = "default"
	MethodNone              ExtractionMethod = "none"
)
