package store

import (
	"bytes"
	"strconv"
	"time"
)

// Key layout:
//
//	batch:<batchID>                                  -> JSON BatchResult
//	batch:idx:publisher:<pub>:<finishedNanos>:<id>   -> empty
//
// Both integers are zero-padded to 20 digits so lexical order matches
// numeric order and a reverse scan yields newest reports first.
const (
	batchPrefix          = "batch:"
	publisherIndexPrefix = batchPrefix + "idx:publisher:"
	padWidth             = 20
)

func reportKey(batchID string) []byte {
	return append([]byte(batchPrefix), batchID...)
}

func appendPadded(buf []byte, n int64) []byte {
	digits := strconv.AppendInt(nil, n, 10)
	for range padWidth - len(digits) {
		buf = append(buf, '0')
	}
	return append(buf, digits...)
}

// publisherPrefix returns the index prefix shared by every report of publisherID.
func publisherPrefix(publisherID int64) []byte {
	buf := make([]byte, 0, len(publisherIndexPrefix)+padWidth+1)
	buf = append(buf, publisherIndexPrefix...)
	buf = appendPadded(buf, publisherID)
	return append(buf, ':')
}

func publisherIndexKey(publisherID int64, finished time.Time, batchID string) []byte {
	buf := publisherPrefix(publisherID)
	buf = appendPadded(buf, finished.UnixNano())
	buf = append(buf, ':')
	return append(buf, batchID...)
}

// batchIDFromIndexKey extracts the trailing batch ID of a publisher index key.
func batchIDFromIndexKey(key []byte) string {
	return string(key[bytes.LastIndexByte(key, ':')+1:])
}
