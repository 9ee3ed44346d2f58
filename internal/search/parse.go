package search

import (
	"fmt"
	"strings"

	"github.com/readstash/readstash/internal/errors"
	"github.com/readstash/readstash/internal/store"
)

// notNullFields are the fields callers may restrict to "present" with a
// has: token. Anything else is rejected rather than silently matching
// nothing.
var notNullFields = map[string]string{
	"shared":   store.FieldSharedAt,
	"archived": store.FieldArchivedAt,
	"file":     store.FieldUploadFileID,
}

// ParseQuery parses the CLI filter syntax into typed search parameters.
//
// Supported tokens, combined with free text in any order:
//
//	in:all|archive|inbox
//	type:article|book|file|highlights|profile|unknown|website
//	is:read|unread
//	label:a,b        (any of a, b; repeat the token to require several)
//	-label:a,b       (exclude items carrying a or b)
//	has:shared|archived|file
//
// Unknown filter values produce a BadData error; plain words accumulate
// into the free-text query.
func ParseQuery(raw string) (store.SearchParams, error) {
	var params store.SearchParams
	var text []string

	for _, token := range strings.Fields(raw) {
		switch {
		case strings.HasPrefix(token, "in:"):
			switch strings.ToLower(token[len("in:"):]) {
			case "all":
				params.InFilter = store.InAll
			case "archive":
				params.InFilter = store.InArchive
			case "inbox":
				params.InFilter = store.InInbox
			default:
				return store.SearchParams{}, errors.BadData(fmt.Sprintf("unknown in: filter %q", token))
			}

		case strings.HasPrefix(token, "type:"):
			pt := store.PageType(strings.ToLower(token[len("type:"):]))
			if !store.ValidPageType(pt) {
				return store.SearchParams{}, errors.BadData(fmt.Sprintf("unknown type: filter %q", token))
			}
			params.TypeFilter = pt

		case strings.HasPrefix(token, "is:"):
			switch strings.ToLower(token[len("is:"):]) {
			case "read":
				params.ReadFilter = store.ReadRead
			case "unread":
				params.ReadFilter = store.ReadUnread
			default:
				return store.SearchParams{}, errors.BadData(fmt.Sprintf("unknown is: filter %q", token))
			}

		case strings.HasPrefix(token, "label:"):
			names := splitLabelNames(token[len("label:"):])
			if len(names) == 0 {
				return store.SearchParams{}, errors.BadData("empty label: filter")
			}
			params.IncludeLabels = append(params.IncludeLabels, store.LabelFilter{Labels: names})

		case strings.HasPrefix(token, "-label:"):
			names := splitLabelNames(token[len("-label:"):])
			if len(names) == 0 {
				return store.SearchParams{}, errors.BadData("empty -label: filter")
			}
			params.ExcludeLabels = append(params.ExcludeLabels, store.LabelFilter{Labels: names})

		case strings.HasPrefix(token, "has:"):
			field, ok := notNullFields[strings.ToLower(token[len("has:"):])]
			if !ok {
				return store.SearchParams{}, errors.BadData(fmt.Sprintf("unknown has: filter %q", token))
			}
			params.NotNullField = field

		default:
			text = append(text, token)
		}
	}

	params.Query = strings.Join(text, " ")
	return params, nil
}

func splitLabelNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
