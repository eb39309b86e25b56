package mocks

//go:generate mockery --name Sink --srcpkg github.com/aevon-lab/jfrtel/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
