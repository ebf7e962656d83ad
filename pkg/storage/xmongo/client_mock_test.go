package xmongo

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/mock/gomock"
)

// MockclientOperations 是 clientOperations 的 gomock 实现。
type MockclientOperations struct {
	ctrl     *gomock.Controller
	recorder *MockclientOperationsMockRecorder
}

// MockclientOperationsMockRecorder 记录 MockclientOperations 的期望调用。
type MockclientOperationsMockRecorder struct {
	mock *MockclientOperations
}

// NewMockclientOperations 创建 mock 实例。
func NewMockclientOperations(ctrl *gomock.Controller) *MockclientOperations {
	mock := &MockclientOperations{ctrl: ctrl}
	mock.recorder = &MockclientOperationsMockRecorder{mock}
	return mock
}

// EXPECT 返回用于声明期望调用的 recorder。
func (m *MockclientOperations) EXPECT() *MockclientOperationsMockRecorder {
	return m.recorder
}

// Database mocks base method.
func (m *MockclientOperations) Database(name string) databaseOperations {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Database", name)
	ret0, _ := ret[0].(databaseOperations)
	return ret0
}

// Database indicates an expected call of Database.
func (mr *MockclientOperationsMockRecorder) Database(name any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Database", reflect.TypeOf((*MockclientOperations)(nil).Database), name)
}

// Disconnect mocks base method.
func (m *MockclientOperations) Disconnect(ctx context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Disconnect", ctx)
	ret0, _ := ret[0].(error)
	return ret0
}

// Disconnect indicates an expected call of Disconnect.
func (mr *MockclientOperationsMockRecorder) Disconnect(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Disconnect", reflect.TypeOf((*MockclientOperations)(nil).Disconnect), ctx)
}

// NumberSessionsInProgress mocks base method.
func (m *MockclientOperations) NumberSessionsInProgress() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NumberSessionsInProgress")
	ret0, _ := ret[0].(int)
	return ret0
}

// NumberSessionsInProgress indicates an expected call of NumberSessionsInProgress.
func (mr *MockclientOperationsMockRecorder) NumberSessionsInProgress() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NumberSessionsInProgress", reflect.TypeOf((*MockclientOperations)(nil).NumberSessionsInProgress))
}

// Ping mocks base method.
func (m *MockclientOperations) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Ping", ctx, rp)
	ret0, _ := ret[0].(error)
	return ret0
}

// Ping indicates an expected call of Ping.
func (mr *MockclientOperationsMockRecorder) Ping(ctx, rp any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Ping", reflect.TypeOf((*MockclientOperations)(nil).Ping), ctx, rp)
}

var _ clientOperations = (*MockclientOperations)(nil)
