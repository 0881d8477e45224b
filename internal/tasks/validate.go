package tasks

import "strings"

func validateCreate(in CreateInput) []string {
	var errs []string
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "Title is required")
	}
	if !in.Status.Valid() {
		errs = append(errs, "Invalid status")
	}
	return errs
}

func validatePatch(p Patch) []string {
	var errs []string
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs = append(errs, "Title cannot be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs = append(errs, "Invalid status")
	}
	return errs
}
