package journal

import "go.uber.org/multierr"

// Multi fans every record out to each journal. Errors from all of them are
// combined; one failing journal does not stop the others.
type Multi []Journal

func (m Multi) RecordValue(v ValueRecord) error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.RecordValue(v))
	}
	return err
}

func (m Multi) RecordRun(r RunRecord) error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.RecordRun(r))
	}
	return err
}

func (m Multi) Close() error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.Close())
	}
	return err
}
