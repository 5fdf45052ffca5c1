package rag

import (
	"fmt"
	"strings"

	"github.com/de7fp/restaurant-rag/models"
)

// NoContext is rendered in place of the context block when retrieval is empty.
const NoContext = "관련된 맛집 정보가 없습니다."

const instruction = "당신은 맛집 추천 전문가입니다. 아래 [참고 정보]를 바탕으로 사용자 질문에 답변해주세요.\n" +
	"**반드시 아래의 JSON 형식으로만 응답해야 합니다. 다른 말은 덧붙이지 마세요.**\n\n" +
	"응답 예시:\n" +
	"{\n" +
	"  \"restaurant_ID\": [123, 456],\n" +
	"  \"answer\": \"홍대 근처라면 00식당을 추천해요! 현재 대기가 2팀 있어 약 20분 기다려야 합니다.\"\n" +
	"}\n\n" +
	"지침:\n" +
	"- 'restaurant_ID' 리스트에는 [참고 정보]에 있는 식당 중 추천하는 곳의 'ID'를 정수형으로 담으세요.\n" +
	"- 'answer'에는 [참고 정보]의 '대기 현황'과 '예상 대기 시간'을 포함하여 구체적으로 설명하세요.\n" +
	"- [참고 정보]에 없는 내용은 지어내지 마세요.\n"

// WaitingStatus describes the queue in front of a restaurant.
func WaitingStatus(teams int) string {
	if teams <= 0 {
		return "대기 없음 (바로 입장 가능)"
	}
	return fmt.Sprintf("%d팀 대기 중 (약 %d분 소요)", teams, models.WaitMinutes(teams))
}

// BuildContext renders the retrieved restaurants in retrieval order.
func BuildContext(restaurants []models.Restaurant) string {
	if len(restaurants) == 0 {
		return NoContext
	}

	blocks := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		var b strings.Builder
		fmt.Fprintf(&b, "- ID: %d\n", r.PlaceID)
		fmt.Fprintf(&b, "  이름: %s\n", r.Name)
		fmt.Fprintf(&b, "  카테고리: %s\n", r.Category)
		fmt.Fprintf(&b, "  주소: %s\n", r.Address)
		fmt.Fprintf(&b, "  대기 현황: %s\n", WaitingStatus(r.CurrentWaitingTeam))
		fmt.Fprintf(&b, "  특징: %s\n", r.Description)
		fmt.Fprintf(&b, "  평점: %s\n", models.FormatRating(r.Rating))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func BuildPrompt(contextText, message string) string {
	return instruction + "\n\n[참고 정보]\n" + contextText + "\n\n사용자 질문: " + message
}
