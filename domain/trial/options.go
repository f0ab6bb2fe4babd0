package trial

import "github.com/helixml/trialdex/domain/repository"

// WithNCTID filters by the "nct_id" column.
func WithNCTID(id string) repository.Option {
	return repository.WithCondition("nct_id", id)
}

// WithNCTIDIn filters by multiple trial identifiers.
func WithNCTIDIn(ids []string) repository.Option {
	return repository.WithConditionIn("nct_id", ids)
}

// WithKeyword matches trials whose conditions or title contain the keyword,
// ignoring case.
func WithKeyword(keyword string) repository.Option {
	return repository.WithContainsAny(keyword, "conditions", "title")
}
