package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/gridpick/internal/domain/model"
)

// Entity prefixes. Every key is prefix + "/" + key parts joined by "/".
const (
	userEntity     = "user"
	driverEntity   = "driver"
	raceEntity     = "race"
	matchupEntity  = "matchup"
	predEntity     = "prediction"
	resultEntity   = "result"
	scoreEntity    = "score"
	h2hPredEntity  = "h2hpred"
	h2hResEntity   = "h2hresult"
	h2hScoreEntity = "h2hscore"

	driverCodeIndex  = "idx/driver-code"
	raceRoundIndex   = "idx/race-round"
	matchupTeamIndex = "idx/matchup-team"
)

// countedEntities are reported by Counts.
var countedEntities = []string{
	userEntity, driverEntity, raceEntity, matchupEntity, predEntity,
	resultEntity, scoreEntity, h2hPredEntity, h2hResEntity, h2hScoreEntity,
}

func buildKey(entity string, parts ...string) ([]byte, error) {
	for _, p := range parts {
		if p == "" || strings.Contains(p, "/") {
			return nil, fmt.Errorf("%w: %s part %q", ErrInvalidKey, entity, p)
		}
	}
	return []byte(entity + "/" + strings.Join(parts, "/")), nil
}

// prefix returns the iteration prefix for entity narrowed by leading parts.
func prefix(entity string, parts ...string) ([]byte, error) {
	if len(parts) == 0 {
		return []byte(entity + "/"), nil
	}
	key, err := buildKey(entity, parts...)
	if err != nil {
		return nil, err
	}
	return append(key, '/'), nil
}

func sessionPart(s model.SessionType) string { return string(s) }

func intPart(v int) string { return strconv.Itoa(v) }
