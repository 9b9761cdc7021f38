package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

var commonFirstNames = []string{
	"Ana", "Luis", "Carlos", "Maria", "Sofia", "Diego", "Lucia", "Jorge", "Elena", "Pablo",
	"Valeria", "Andres", "Camila", "Mateo", "Daniela", "Javier", "Paula", "Ricardo", "Laura", "Tomas",
}
var commonLastNames = []string{
	"Garcia", "Rodriguez", "Martinez", "Lopez", "Gonzalez", "Perez", "Sanchez", "Ramirez", "Torres", "Flores",
}

func GenerateRandomFullName() string {
	first := commonFirstNames[rand.Intn(len(commonFirstNames))]
	last := commonLastNames[rand.Intn(len(commonLastNames))]
	return first + " " + last
}

var digits = "0123456789"

// GenerateEmailFromFullName 用姓名拼出邮箱前缀，并追加随机数字避免重复
func GenerateEmailFromFullName(fullName string, emailDomainName string) string {
	local := strings.ToLower(strings.ReplaceAll(fullName, " ", "."))

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		local += string(digits[rand.Intn(len(digits))])
	}

	return local + "@" + emailDomainName
}

// 常见的每周容量，单位为小时
var weeklyCapacities = []int64{20, 30, 32, 40, 40, 40}

func GenerateRandomTeamMember(emailDomainName string) *domain.TeamMember {
	fullName := GenerateRandomFullName()

	return &domain.TeamMember{
		FullName:       fullName,
		Email:          GenerateEmailFromFullName(fullName, emailDomainName),
		WeeklyCapacity: decimal.NewFromInt(weeklyCapacities[rand.Intn(len(weeklyCapacities))]),
		IsActive:       true,
	}
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var requestTypes = []string{"feature", "bug", "support", "consulting", "maintenance"}

var requestPriorities = []domain.RequestPriority{
	domain.RequestPriorityLow,
	domain.RequestPriorityMedium,
	domain.RequestPriorityHigh,
	domain.RequestPriorityCritical,
}

var requestStatuses = []domain.RequestStatus{
	domain.RequestStatusBacklog,
	domain.RequestStatusBacklog,
	domain.RequestStatusPlanned,
	domain.RequestStatusInProgress,
	domain.RequestStatusDone,
}

// GenerateRandomRequest 生成一个随机需求，预估工时为 0.5 的整数倍
func GenerateRandomRequest() *domain.Request {
	reqType := requestTypes[rand.Intn(len(requestTypes))]
	halfHours := rand.Intn(80) + 1 // 0.5 ~ 40 小时

	return &domain.Request{
		Title:          fmt.Sprintf("%s %s", reqType, GenerateRandomID(3, 4)),
		Type:           reqType,
		Priority:       requestPriorities[rand.Intn(len(requestPriorities))],
		EstimatedHours: decimal.NewFromInt(int64(halfHours)).Div(decimal.NewFromInt(2)),
		Status:         requestStatuses[rand.Intn(len(requestStatuses))],
	}
}
