package tutor

var templates = map[Topic]string{
	TopicLoops: "**For Loops in Python**\n" +
		"\n" +
		"A for loop iterates over a sequence (list, string, range, etc.):\n" +
		"\n" +
		"```python\n" +
		"# Basic for loop\n" +
		"for i in range(5):\n" +
		"    print(i)  # Prints 0, 1, 2, 3, 4\n" +
		"\n" +
		"# Loop through a list\n" +
		"fruits = ['apple', 'banana', 'cherry']\n" +
		"for fruit in fruits:\n" +
		"    print(fruit)\n" +
		"```\n" +
		"\n" +
		"**Key points:**\n" +
		"- `range(n)` generates numbers 0 to n-1\n" +
		"- Use `break` to exit early\n" +
		"- Use `continue` to skip to next iteration",

	TopicFunctions: "**Functions in Python**\n" +
		"\n" +
		"Functions are reusable blocks of code:\n" +
		"\n" +
		"```python\n" +
		"def greet(name):\n" +
		"    return f\"Hello, {name}!\"\n" +
		"\n" +
		"# Calling functions\n" +
		"message = greet(\"Alice\")\n" +
		"print(message)  # Hello, Alice!\n" +
		"```\n" +
		"\n" +
		"Try writing a function in the code editor!",

	TopicLists: "**Lists in Python**\n" +
		"\n" +
		"Lists are ordered, mutable collections:\n" +
		"\n" +
		"```python\n" +
		"numbers = [1, 2, 3, 4, 5]\n" +
		"numbers.append(6)\n" +
		"print(numbers)  # [1, 2, 3, 4, 5, 6]\n" +
		"```\n" +
		"\n" +
		"Try creating a list in the code editor!",

	TopicConditionals: "**If Statements in Python**\n" +
		"\n" +
		"```python\n" +
		"age = 18\n" +
		"\n" +
		"if age < 13:\n" +
		"    print(\"Child\")\n" +
		"elif age < 20:\n" +
		"    print(\"Teenager\")\n" +
		"else:\n" +
		"    print(\"Adult\")\n" +
		"```\n" +
		"\n" +
		"Try writing an if statement!",
}

func generalResponse(question string) string {
	return "Great question about \"" + question + "\"!\n" +
		"\n" +
		"I'm your Python AI tutor. I can help you with:\n" +
		"- **Python syntax** - variables, operators, data types\n" +
		"- **Control flow** - if/else, loops, functions\n" +
		"- **Data structures** - lists, dictionaries, tuples\n" +
		"\n" +
		"Try asking about a specific topic!"
}
