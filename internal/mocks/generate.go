package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Session --dir ../infrastructure/repository/postgres --output infrastructure/postgres --outpkg postgresmock --filename session_mock.go
