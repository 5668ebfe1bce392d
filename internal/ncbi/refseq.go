package ncbi

import (
	"fmt"
	"regexp"
)

var refseqCommentPattern = regexp.MustCompile(
	`(?s)^(\w+) REFSEQ:.*?(?:identical to|derived from) ([A-Z]{1,2}_?\d+)(?:\.\d+)?`,
)

// ParseRefSeqComment extracts the RefSeq status and the accession of the
// record the RefSeq entry was derived from, for example
//
//	PROVISIONAL REFSEQ: ... The reference sequence is identical to EF546808.
func ParseRefSeqComment(comment string) (status, predecessor string, err error) {
	m := refseqCommentPattern.FindStringSubmatch(comment)
	if m == nil {
		return "", "", fmt.Errorf("no predecessor accession in comment %q", comment)
	}
	return m[1], m[2], nil
}
