package handler

import (
	"strconv"

	"nftvault/internal/repository"
)

func jsonID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func repositoryAll() repository.ListArtifactsParams {
	return repository.ListArtifactsParams{}
}
