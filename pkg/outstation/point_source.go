package outstation

import "github.com/dnp3core/godnp3/pkg/apdu"

// PointSource is the boundary the embedding application implements to
// expose its static point database to the response builder. The core
// only ever asks for already wire-encoded object blocks; it never
// touches application-level point storage directly, the same boundary
// the teacher draws between its SDO/PDO layers and the od.Extension
// callbacks a device registers for its own object dictionary entries.
type PointSource interface {
	// ReadRange encodes the static objects named by group/variation over
	// r into wire-ready object blocks.
	ReadRange(group, variation uint8, r apdu.Range) ([]apdu.ObjectBlock, error)
	// ReadClass0 encodes every static point as a group 60 var 1 read
	// would expect: one or more object blocks spanning the database's
	// native point groups.
	ReadClass0() []apdu.ObjectBlock
}
