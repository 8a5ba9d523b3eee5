package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aerocal/gaugecore/internal/model"
)

// DecodeCaller parses the claims of a bearer token already verified by the
// excluded HTTP boundary into a Caller record. It does not check the signature — that
// already happened upstream; this only extracts the identity shape the
// rest of the core needs.
func DecodeCaller(tokenString string) (*model.Caller, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return &model.Caller{}, nil
	}

	caller := &model.Caller{}
	if sub, ok := claims["sub"].(string); ok {
		caller.UserID = sub
	}
	if role, ok := claims["role"].(string); ok {
		caller.Role = role
	}
	if rawPerms, ok := claims["permissions"].(string); ok {
		for _, p := range strings.Split(rawPerms, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				caller.Permissions = append(caller.Permissions, model.Capability(p))
			}
		}
	} else if rawPerms, ok := claims["permissions"].([]interface{}); ok {
		for _, p := range rawPerms {
			if s, ok := p.(string); ok {
				caller.Permissions = append(caller.Permissions, model.Capability(s))
			}
		}
	}
	return caller, nil
}
