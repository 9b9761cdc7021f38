package metrics

// Recorder 协调器上报的指标
type Recorder interface {
	PlanConfirmed(mode string)
	AssignmentsCreated(n int)
	AssignmentUpdated()
	AssignmentDeleted()
	ValidationFailed(op string)
	PublishFailed(event string)
}

// Nop 丢弃所有指标，测试和未配置指标时使用
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) PlanConfirmed(string)    {}
func (Nop) AssignmentsCreated(int)  {}
func (Nop) AssignmentUpdated()      {}
func (Nop) AssignmentDeleted()      {}
func (Nop) ValidationFailed(string) {}
func (Nop) PublishFailed(string)    {}
