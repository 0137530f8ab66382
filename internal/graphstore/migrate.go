package graphstore

// CurrentVersion is the record schema version written by this build.
const CurrentVersion = 3

// migration upgrades a record from exactly one schema version to the next.
type migration struct {
	from  int
	apply func(*Store)
}

// migrations run in order during Decode. Each stored record passes through
// them at most once; renders never re-apply them.
var migrations = []migration{
	{
		// Records written before versioning carry no version field and
		// decode as 0. They share the v1 layout.
		from:  0,
		apply: func(s *Store) {},
	},
	{
		// v1 records predate strokeOpacity; default to fully opaque.
		from: 1,
		apply: func(s *Store) {
			if s.StrokeOpacity == 0 {
				s.StrokeOpacity = 1
			}
		},
	},
	{
		// v2 records could omit the link wrapper id; derive it from the place id.
		from: 2,
		apply: func(s *Store) {
			for i := range s.Places {
				if s.Places[i].LinkID == "" {
					s.Places[i].LinkID = LinkIDFor(s.Places[i].ID)
				}
			}
		},
	},
}

// Migrate applies all pending schema upgrades in order and reports whether
// the store changed. Records at CurrentVersion pass through untouched.
func Migrate(s *Store) bool {
	upgraded := false
	for _, m := range migrations {
		if s.Version == m.from {
			m.apply(s)
			s.Version++
			upgraded = true
		}
	}
	return upgraded
}
