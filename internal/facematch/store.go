package facematch

// Store holds enrolled samples together with an explicit owner/label table.
// Labels are assigned sequentially in first-enrollment order and never reused,
// so replaying persisted samples in order reproduces the same label space.
// Store is not safe for concurrent use; Matcher serializes access to it.
type Store struct {
	labels       map[string]int
	owners       []string // indexed by label, empty once removed
	samples      []Sample
	sampleLabels []int
}

// NewStore creates an empty face store.
func NewStore() *Store {
	return &Store{labels: make(map[string]int)}
}

// LabelFor returns the label of owner, assigning the next free one on first sight.
func (s *Store) LabelFor(owner string) int {
	if label, ok := s.labels[owner]; ok {
		return label
	}
	label := len(s.owners)
	s.labels[owner] = label
	s.owners = append(s.owners, owner)
	return label
}

// Lookup returns the label of an enrolled owner.
func (s *Store) Lookup(owner string) (int, bool) {
	label, ok := s.labels[owner]
	return label, ok
}

// Owner returns the owner a label was assigned to.
func (s *Store) Owner(label int) (string, bool) {
	if label < 0 || label >= len(s.owners) || s.owners[label] == "" {
		return "", false
	}
	return s.owners[label], true
}

// Enroll appends a sample for owner and returns its label.
// Enrolling the same owner again adds another sample under the same label.
func (s *Store) Enroll(owner string, sample Sample) int {
	label := s.LabelFor(owner)
	s.samples = append(s.samples, sample)
	s.sampleLabels = append(s.sampleLabels, label)
	return label
}

// Remove drops every sample of owner and its label entry.
// It returns the number of samples removed.
func (s *Store) Remove(owner string) int {
	label, ok := s.labels[owner]
	if !ok {
		return 0
	}
	delete(s.labels, owner)
	s.owners[label] = ""

	kept := 0
	for i, l := range s.sampleLabels {
		if l == label {
			continue
		}
		s.samples[kept] = s.samples[i]
		s.sampleLabels[kept] = l
		kept++
	}
	removed := len(s.samples) - kept
	clear(s.samples[kept:])
	s.samples = s.samples[:kept]
	s.sampleLabels = s.sampleLabels[:kept]
	return removed
}

// Samples returns the enrolled samples and their parallel labels.
// The slices are owned by the store and must not be modified.
func (s *Store) Samples() ([]Sample, []int) {
	return s.samples, s.sampleLabels
}

// Len returns the number of enrolled samples.
func (s *Store) Len() int {
	return len(s.samples)
}

// Owners returns the number of distinct enrolled owners.
func (s *Store) Owners() int {
	return len(s.labels)
}

// SampleCount returns how many samples owner has enrolled.
func (s *Store) SampleCount(owner string) int {
	label, ok := s.labels[owner]
	if !ok {
		return 0
	}
	n := 0
	for _, l := range s.sampleLabels {
		if l == label {
			n++
		}
	}
	return n
}
