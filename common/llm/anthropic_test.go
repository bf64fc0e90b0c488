package llm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type toolReply struct {
	Content    *string  `json:"content"`
	Confidence *float64 `json:"confidence"`
	Notes      []string `json:"notes,omitempty"`
}

var _ = Describe("toolInputSchema", func() {
	It("forwards required fields to the tool schema", func() {
		schema, err := toolInputSchema(GenerateSchema[toolReply]())

		Expect(err).NotTo(HaveOccurred())
		Expect(schema.Properties).To(HaveKey("content"))
		Expect(schema.Properties).To(HaveKey("confidence"))
		Expect(schema.Required).To(ConsistOf("content", "confidence"))
	})
})
