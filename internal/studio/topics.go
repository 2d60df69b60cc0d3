package studio

// Topics 课程视图中的主题列表
var Topics = []string{
	"Python Basics",
	"Variables & Data Types",
	"Loops",
	"Functions",
	"Lists & Comprehensions",
	"Dictionaries",
	"Recursion",
	"Classes & Objects",
	"Error Handling",
	"Sorting Algorithms",
}

// DefaultCode 代码练习区的初始内容
const DefaultCode = `# Edit this code, then run & analyze it
def greet(name):
    return "Hello, " + name

for i in range(3):
    print(greet("Learner " + str(i)))
`

// EditInstruction 插图编辑使用的固定指令
const EditInstruction = "Make this illustration more colorful and add clear text labels to every part of the diagram."

// CannedTranscription 模拟语音输入填入的问题
const CannedTranscription = "Can you explain how recursion works with a simple example?"
