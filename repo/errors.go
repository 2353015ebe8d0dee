package repo

import "github.com/ScriptSmith/hadrian/types"

func notFoundErr() error {
	return types.NotFound("resource")
}

func translateDBError(message string, err error) error {
	return types.DatabaseError(message, err)
}
