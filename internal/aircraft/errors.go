package aircraft

import (
	"fmt"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
)

func errInvalidCoord(field string, v float64) error {
	return fusionerr.Policy("aircraft.Position.Validate", fmt.Sprintf("%s out of range: %v", field, v))
}
