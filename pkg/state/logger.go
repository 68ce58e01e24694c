package state

import "github.com/sirupsen/logrus"

// badgerAdapter satisfies badger.Logger on top of logrus.
type badgerAdapter struct {
	*logrus.Entry
}

func newBadgerAdapter(entry *logrus.Entry) *badgerAdapter {
	return &badgerAdapter{entry}
}

func (l *badgerAdapter) Errorf(f string, v ...interface{})   { l.Entry.Errorf(f, v...) }
func (l *badgerAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }
func (l *badgerAdapter) Infof(f string, v ...interface{})    { l.Entry.Infof(f, v...) }
func (l *badgerAdapter) Debugf(f string, v ...interface{})   { l.Entry.Debugf(f, v...) }
