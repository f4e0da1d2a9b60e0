package pipeline

// applyCorrections mutates extracted's atomic_criteria map in place,
// field by field, per Pass 2's correction list (§4.6). Corrections
// naming a criterion id that does not exist in the extraction, or
// carrying an empty field name, are skipped rather than treated as an
// error: Pass 2 may propose a correction for a criterion Pass 1 never
// actually emitted. A correction to a field the criterion entry does
// not yet carry adds that field.
// Returns the number of corrections actually applied.
func applyCorrections(extracted map[string]interface{}, corrections []Correction) int {
	criteria, ok := extracted["atomic_criteria"].(map[string]interface{})
	if !ok {
		return 0
	}
	applied := 0
	for _, corr := range corrections {
		entry, ok := criteria[corr.CriterionID].(map[string]interface{})
		if !ok || corr.Field == "" {
			continue
		}
		entry[corr.Field] = corr.CorrectedValue
		applied++
	}
	return applied
}
