package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel 是发布者依赖的 amqp 通道方法，方便在测试中替换
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher 将事件以 JSON 的形式发送到默认交换机，路由键为队列名
type AMQPPublisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
}

func NewAMQPPublisher(ch Channel, queue string, timeout time.Duration) *AMQPPublisher {
	return &AMQPPublisher{
		ch:      ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, eventName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// 不使用调用方的 ctx：请求结束后事件仍然需要发出
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         eventName,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// DeclareQueue 声明事件队列，发布方和消费方都会调用，参数必须一致
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // 队列名称
		true,  // 持久化
		false, // 不自动删除
		false, // 不独占
		false, // 等待服务器确认
		nil,
	)
}
