package redis

import (
	"fmt"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// Key semantics:
// - recordKey(prefix, id): the JSON record for one resource (String)
// - indexKey(prefix):      ids that currently have a record (Set)

const (
	keyRecordFmt = "docmodel:recovery:%s_%s"    // String<json CacheRecord>
	keyIndexFmt  = "docmodel:recovery:index:%s" // Set<resource id>
)

func recordKey(prefix string, id domain.ResourceID) string {
	return fmt.Sprintf(keyRecordFmt, prefix, id)
}

func indexKey(prefix string) string { return fmt.Sprintf(keyIndexFmt, prefix) }
