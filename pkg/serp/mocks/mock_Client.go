// Package mocks provides test doubles for the serp client.
package mocks

import (
	"context"

	serp "github.com/briannafare/local-authority-snapshot-sub000/pkg/serp"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req serp.SearchRequest) (*serp.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *serp.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, serp.SearchRequest) (*serp.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*serp.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Maps provides a mock function with given fields: ctx, req
func (_m *MockClient) Maps(ctx context.Context, req serp.MapsRequest) (*serp.MapsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Maps")
	}

	var r0 *serp.MapsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, serp.MapsRequest) (*serp.MapsResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*serp.MapsResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
