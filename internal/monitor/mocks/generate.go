// Package mocks holds gomock doubles for the status monitor's ports.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/monitor/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ledger_mock.go github.com/cuongbtq/jobgroups/internal/monitor Ledger
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=publisher_mock.go github.com/cuongbtq/jobgroups/internal/monitor Publisher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=group_lister_mock.go github.com/cuongbtq/jobgroups/internal/monitor GroupLister
