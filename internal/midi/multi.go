package midi

import (
	"github.com/hashicorp/go-multierror"

	"github.com/ayusman/mudra/internal/signal"
)

// MultiSink fans controls out to several sinks.
// Every sink sees every frame even if an earlier one fails.
type MultiSink []Sink

// Send forwards c to all sinks and returns their combined errors.
func (m MultiSink) Send(c signal.Controls) error {
	var result *multierror.Error
	for _, s := range m {
		if err := s.Send(c); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes all sinks and returns their combined errors.
func (m MultiSink) Close() error {
	var result *multierror.Error
	for _, s := range m {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
