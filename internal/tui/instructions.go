package tui

// Instructions is shown before practice when no other text is configured.
const Instructions = `# Sustained Attention to Response Task

Digits from **1** to **9** appear one at a time in the middle of the screen.

* Press **space** as quickly as you can for every digit **except 3**.
* When you see a **3**, do not press anything.

Each digit is shown briefly, and you have a little over a second to respond.
You will first do **10 practice trials** with feedback, then the real test.

Press **enter** to start the practice.
`
